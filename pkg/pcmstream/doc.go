// ABOUTME: pcmstream client library API
// ABOUTME: Provides the session state machine, playback scheduler and Player
// Package pcmstream plays a PCM stream received over a WebSocket with
// bounded latency and no gaps other than genuine starvation.
//
// The pieces, leaves first:
//   - protocol.ParseFormat negotiates the stream format once per session
//   - decode.PCMDecoder de-interleaves raw chunks
//   - jitter.Buffer queues decoded chunks and gates playback start
//   - Scheduler places chunks back to back on the output device clock
//   - Session owns the lifecycle and reacts to transport and timer events
//
// Player wraps all of it behind one event loop goroutine, which is the only
// caller of Session methods.
//
// Example:
//
//	player, err := pcmstream.NewPlayer(pcmstream.PlayerConfig{
//	    ServerAddr: "localhost:7001",
//	    OnStateChange: func(s pcmstream.Status) {
//	        log.Printf("state: %s", s.State)
//	    },
//	})
//	err = player.Connect()
//	...
//	player.Close()
package pcmstream
