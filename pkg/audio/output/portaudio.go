//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform audio output pulling float32 frames from the timeline
package output

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/harperreed/pcmstream/pkg/audio"
	"go.uber.org/zap"
)

// PortAudio output implementation
type PortAudio struct {
	mu       sync.Mutex
	log      *zap.SugaredLogger
	stream   *portaudio.Stream
	timeline *Timeline
	volume   int
	onEnded  func()
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(opts Options) Output {
	return &PortAudio{
		log:    opts.logger(),
		volume: opts.gain(),
	}
}

// Open initializes PortAudio
func (p *PortAudio) Open(format audio.Format) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: failed to initialize portaudio: %v", ErrUnsupportedPlatform, err)
	}

	timeline := NewTimeline(format.Channels)
	timeline.SetVolume(p.volume)
	timeline.SetOnEnded(p.onEnded)

	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.SampleRate), 0, func(out []float32) {
		timeline.ReadFloat32(out)
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: failed to open stream: %v", ErrUnsupportedPlatform, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	p.timeline = timeline

	p.log.Infow("audio output initialized", "backend", "portaudio", "rate", format.SampleRate, "channels", format.Channels)
	return nil
}

// Now returns frames pulled by the stream callback
func (p *PortAudio) Now() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timeline == nil {
		return 0
	}
	return p.timeline.Now()
}

// Schedule places a chunk on the device clock
func (p *PortAudio) Schedule(start int64, c audio.Chunk) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timeline == nil {
		return ErrNotOpen
	}
	return p.timeline.Schedule(start, c)
}

// OnEnded registers the chunk-finished callback
func (p *PortAudio) OnEnded(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.onEnded = fn
	if p.timeline != nil {
		p.timeline.SetOnEnded(fn)
	}
}

// SetVolume sets the volume (0-100)
func (p *PortAudio) SetVolume(volume int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = volume
	if p.timeline != nil {
		p.timeline.SetVolume(volume)
	}
}

// Close releases resources
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}

	p.timeline.Close()

	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop stream: %w", err)
	}
	if err := p.stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	p.stream = nil
	p.timeline = nil

	return portaudio.Terminate()
}
