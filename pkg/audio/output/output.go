// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for sample-clock scheduled playback backends
package output

import (
	"errors"
	"fmt"

	"github.com/harperreed/pcmstream/pkg/audio"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedPlatform is returned when no audio device can be used
	ErrUnsupportedPlatform = errors.New("audio output not supported on this platform")
	// ErrNotOpen is returned when scheduling on a device that is not open
	ErrNotOpen = errors.New("output not open")
	// ErrChannelMismatch is returned for chunks whose channel count differs from the device
	ErrChannelMismatch = errors.New("chunk channel count does not match output")
)

// Output represents an audio output device with its own sample clock
type Output interface {
	// Open initializes the device for the negotiated format
	Open(format audio.Format) error

	// Now returns the device clock in frames rendered since Open
	Now() int64

	// Schedule places a chunk to begin at an absolute frame on the device clock
	Schedule(start int64, c audio.Chunk) error

	// OnEnded registers a callback run once for every scheduled chunk that
	// finishes. It may be called from the audio thread.
	OnEnded(fn func())

	// Close releases output resources. Safe to call more than once.
	Close() error
}

// Volumer is implemented by outputs whose gain can change while playing
type Volumer interface {
	SetVolume(volume int)
}

// Options configures a backend
type Options struct {
	Path   string // wav only
	Volume int    // 1-100, zero means full volume
	Muted  bool
	Logger *zap.SugaredLogger
}

func (o Options) gain() int {
	switch {
	case o.Muted:
		return 0
	case o.Volume <= 0:
		return 100
	default:
		return o.Volume
	}
}

func (o Options) logger() *zap.SugaredLogger {
	if o.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return o.Logger
}

// Names lists the selectable backends
var Names = []string{"oto", "portaudio", "wav", "null"}

// New creates the named backend
func New(name string, opts Options) (Output, error) {
	switch name {
	case "", "oto":
		return NewOto(opts), nil
	case "portaudio":
		return NewPortAudio(opts), nil
	case "wav":
		if opts.Path == "" {
			return nil, fmt.Errorf("wav output requires a file path")
		}
		return NewWAV(opts), nil
	case "null":
		return NewNull(opts), nil
	default:
		return nil, fmt.Errorf("unknown output %q", name)
	}
}
