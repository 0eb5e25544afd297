//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Reports ErrUnsupportedPlatform when built without the portaudio tag
package output

import (
	"fmt"

	"github.com/harperreed/pcmstream/pkg/audio"
)

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(opts Options) Output {
	return &PortAudio{}
}

// Open initializes PortAudio
func (p *PortAudio) Open(format audio.Format) error {
	return fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", ErrUnsupportedPlatform)
}

// Now returns zero
func (p *PortAudio) Now() int64 {
	return 0
}

// Schedule always fails
func (p *PortAudio) Schedule(start int64, c audio.Chunk) error {
	return ErrNotOpen
}

// OnEnded does nothing
func (p *PortAudio) OnEnded(fn func()) {}

// Close releases resources
func (p *PortAudio) Close() error {
	return nil
}
