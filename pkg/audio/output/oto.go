// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams the timeline through a persistent oto player with software volume
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/harperreed/pcmstream/pkg/audio"
	"go.uber.org/zap"
)

// oto allows a single context per process
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

// Oto output implementation using oto library
type Oto struct {
	mu       sync.Mutex
	log      *zap.SugaredLogger
	player   *oto.Player
	timeline *Timeline
	volume   int
	onEnded  func()
}

// NewOto creates a new Oto output
func NewOto(opts Options) Output {
	return &Oto{
		log:    opts.logger(),
		volume: opts.gain(),
	}
}

// Open initializes the output device
func (o *Oto) Open(format audio.Format) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("oto output already open")
	}

	ctx, err := otoContext(format)
	if err != nil {
		return err
	}

	o.timeline = NewTimeline(format.Channels)
	o.timeline.SetVolume(o.volume)
	o.timeline.SetOnEnded(o.onEnded)

	// The timeline renders silence when idle so the player never drains.
	o.player = ctx.NewPlayer(o.timeline)
	o.player.SetBufferSize(int(format.DurationToFrames(20*time.Millisecond)) * format.Channels * 2)
	o.player.Play()

	o.log.Infow("audio output initialized", "backend", "oto", "rate", format.SampleRate, "channels", format.Channels)

	return nil
}

func otoContext(format audio.Format) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != format.SampleRate || otoChannels != format.Channels {
			return nil, fmt.Errorf("%w: oto is already running at %dHz %dch and cannot switch to %dHz %dch",
				ErrUnsupportedPlatform, otoRate, otoChannels, format.SampleRate, format.Channels)
		}
		if err := otoCtx.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   20 * time.Millisecond,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create oto context: %v", ErrUnsupportedPlatform, err)
	}
	<-readyChan

	otoCtx = ctx
	otoRate = format.SampleRate
	otoChannels = format.Channels

	return ctx, nil
}

// Now returns frames handed to the player
func (o *Oto) Now() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.timeline == nil {
		return 0
	}
	return o.timeline.Now()
}

// Schedule places a chunk on the device clock
func (o *Oto) Schedule(start int64, c audio.Chunk) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.timeline == nil {
		return ErrNotOpen
	}
	return o.timeline.Schedule(start, c)
}

// OnEnded registers the chunk-finished callback
func (o *Oto) OnEnded(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.onEnded = fn
	if o.timeline != nil {
		o.timeline.SetOnEnded(fn)
	}
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.volume = volume
	if o.timeline != nil {
		o.timeline.SetVolume(volume)
	}
	o.log.Infow("volume set", "volume", volume)
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.timeline != nil {
		o.timeline.Close()
	}

	var err error
	if o.player != nil {
		if cerr := o.player.Close(); cerr != nil {
			err = fmt.Errorf("failed to close oto player: %w", cerr)
		}
		o.player = nil

		otoMu.Lock()
		if otoCtx != nil {
			if serr := otoCtx.Suspend(); serr != nil && err == nil {
				err = fmt.Errorf("failed to suspend oto context: %w", serr)
			}
		}
		otoMu.Unlock()
	}

	o.timeline = nil
	return err
}
