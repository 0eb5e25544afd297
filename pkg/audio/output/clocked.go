// ABOUTME: Real-time clock for sinks with no hardware device
// ABOUTME: Drives a timeline from a ticker so WAV and null outputs pace like a sound card
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/pcmstream/pkg/audio"
	"go.uber.org/zap"
)

const pacerTick = 10 * time.Millisecond

// clockedSink implements the scheduling half of Output for software sinks
type clockedSink struct {
	mu       sync.Mutex
	log      *zap.SugaredLogger
	volume   int
	onEnded  func()
	timeline *Timeline
	pacer    *pacer

	// manual disables the ticker; tests advance the clock themselves
	manual bool
}

func newClockedSink(opts Options, manual bool) *clockedSink {
	return &clockedSink{
		log:    opts.logger(),
		volume: opts.gain(),
		manual: manual,
	}
}

func (s *clockedSink) start(format audio.Format, write func(mix [][]float64) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeline != nil {
		return fmt.Errorf("output already open")
	}

	s.timeline = NewTimeline(format.Channels)
	s.timeline.SetVolume(s.volume)
	s.timeline.SetOnEnded(s.onEnded)

	s.pacer = &pacer{
		timeline: s.timeline,
		rate:     format.SampleRate,
		write:    write,
		log:      s.log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if s.manual {
		close(s.pacer.done)
	} else {
		go s.pacer.run()
	}
	return nil
}

// stop halts the clock; returns false when it was not running
func (s *clockedSink) stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeline == nil {
		return false
	}

	s.timeline.Close()
	close(s.pacer.stop)
	<-s.pacer.done

	s.timeline = nil
	s.pacer = nil
	return true
}

// Now returns frames rendered so far
func (s *clockedSink) Now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeline == nil {
		return 0
	}
	return s.timeline.Now()
}

// Schedule places a chunk on the sink clock
func (s *clockedSink) Schedule(start int64, c audio.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeline == nil {
		return ErrNotOpen
	}
	return s.timeline.Schedule(start, c)
}

// OnEnded registers the chunk-finished callback
func (s *clockedSink) OnEnded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onEnded = fn
	if s.timeline != nil {
		s.timeline.SetOnEnded(fn)
	}
}

// SetVolume sets the volume (0-100)
func (s *clockedSink) SetVolume(volume int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = volume
	if s.timeline != nil {
		s.timeline.SetVolume(volume)
	}
}

// advance renders frames; only used directly by tests of manual sinks
func (s *clockedSink) advance(frames int) error {
	s.mu.Lock()
	p := s.pacer
	s.mu.Unlock()

	if p == nil {
		return ErrNotOpen
	}
	return p.advance(frames)
}

type pacer struct {
	timeline *Timeline
	rate     int
	write    func(mix [][]float64) error
	log      *zap.SugaredLogger
	rendered int64
	failed   bool

	stop chan struct{}
	done chan struct{}
}

func (p *pacer) run() {
	defer close(p.done)

	ticker := time.NewTicker(pacerTick)
	defer ticker.Stop()

	started := time.Now()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			target := int64(time.Since(started)) * int64(p.rate) / int64(time.Second)
			if n := target - p.rendered; n > 0 {
				if err := p.advance(int(n)); err != nil && !p.failed {
					p.failed = true
					p.log.Errorw("sink write failed", "error", err)
				}
			}
		}
	}
}

func (p *pacer) advance(frames int) error {
	mix := p.timeline.render(frames)
	p.rendered += int64(frames)
	if p.write == nil {
		return nil
	}
	return p.write(mix)
}
