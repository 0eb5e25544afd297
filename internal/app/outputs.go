// ABOUTME: Output factory for player sessions
// ABOUTME: Creates the configured backend per session and applies live volume changes
package app

import (
	"sync"

	"github.com/harperreed/pcmstream/pkg/audio/output"
	"go.uber.org/zap"
)

// outputs creates one device per session and remembers the latest so
// volume changes reach the device that is playing
type outputs struct {
	name string
	path string
	log  *zap.SugaredLogger
	open func(name string, opts output.Options) (output.Output, error)

	mu      sync.Mutex
	volume  int
	muted   bool
	current output.Output
}

func newOutputs(name, path string, volume int, log *zap.SugaredLogger) *outputs {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &outputs{
		name:   name,
		path:   path,
		log:    log,
		open:   output.New,
		volume: volume,
		muted:  volume == 0,
	}
}

// New implements pcmstream.PlayerConfig.NewOutput
func (o *outputs) New() (output.Output, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	out, err := o.open(o.name, output.Options{
		Path:   o.path,
		Volume: o.volume,
		Muted:  o.muted,
		Logger: o.log.With("output", o.name),
	})
	if err != nil {
		return nil, err
	}
	o.current = out
	return out, nil
}

// SetVolume updates the level for future devices and the current one
func (o *outputs) SetVolume(volume int, muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.volume = volume
	o.muted = muted || volume == 0

	if v, ok := o.current.(output.Volumer); ok {
		gain := volume
		if o.muted {
			gain = 0
		}
		v.SetVolume(gain)
	}
}

// Volume returns the configured volume and mute state
func (o *outputs) Volume() (int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume, o.muted
}
