// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Output interface, a sample-clock Timeline and device backends
// Package output provides audio playback backends driven by a sample clock.
//
// Every backend exposes the frames it has rendered since Open as Now, and
// accepts chunks scheduled at absolute frame positions. Frames with nothing
// scheduled play as silence. Backends:
//
//   - oto: default, pure Go device output
//   - portaudio: build with -tags portaudio
//   - wav: records to a 16-bit WAV file, paced in real time
//   - null: discards audio, paced in real time
//
// Example:
//
//	out, err := output.New("oto", output.Options{Volume: 80})
//	err = out.Open(format)
//	out.OnEnded(func() { ... })
//	err = out.Schedule(out.Now(), chunk)
package output
