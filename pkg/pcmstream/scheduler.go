// ABOUTME: Playback scheduler with a monotonic sample-clock cursor
// ABOUTME: Places chunks back to back, re-anchoring just past now after a stall
package pcmstream

import (
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/pcmstream/pkg/audio"
	"github.com/harperreed/pcmstream/pkg/jitter"
	"go.uber.org/zap"
)

const (
	// DefaultLead is how far ahead of the device clock chunks are scheduled
	DefaultLead = 100 * time.Millisecond
	// DefaultTick is the scheduler polling interval
	DefaultTick = 10 * time.Millisecond
	// ReanchorMargin is added to the device clock whenever the cursor is
	// (re)anchored. The device may render up to one buffer between Now and
	// Schedule, and a chunk must not start inside that span.
	ReanchorMargin = 20 * time.Millisecond
)

// Sink is the device side of the scheduler
type Sink interface {
	Now() int64
	Schedule(start int64, c audio.Chunk) error
}

// SchedulerStats tracks scheduler metrics
type SchedulerStats struct {
	Scheduled int64
	Failed    int64
	Reanchors int64
}

// Scheduler owns the playback cursor. All positions are frames on the
// sink's clock.
type Scheduler struct {
	sink      Sink
	format    audio.Format
	lead      int64
	margin    int64
	nextStart int64
	started   bool
	log       *zap.SugaredLogger

	stats SchedulerStats
}

// NewScheduler creates a scheduler for one negotiated format
func NewScheduler(sink Sink, format audio.Format, lead time.Duration, logger *zap.SugaredLogger) *Scheduler {
	if lead <= 0 {
		lead = DefaultLead
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		sink:   sink,
		format: format,
		lead:   format.DurationToFrames(lead),
		margin: format.DurationToFrames(ReanchorMargin),
		log:    logger,
	}
}

// Step schedules buffered chunks until the cursor is more than the lead
// margin ahead of the device clock. It returns the number of chunks
// scheduled, and ErrStarved when the buffer is empty and the device has
// caught up with the cursor. A cursor within ReanchorMargin of the device
// clock is moved to now plus the margin.
func (s *Scheduler) Step(buf *jitter.Buffer) (int, error) {
	scheduled := 0

	for {
		now := s.sink.Now()
		if s.started && s.nextStart-now > s.lead {
			return scheduled, nil
		}

		c, err := buf.Dequeue()
		if errors.Is(err, jitter.ErrEmpty) {
			if s.started && s.nextStart > now {
				// still playing out what was scheduled
				return scheduled, nil
			}
			return scheduled, ErrStarved
		}

		start := s.nextStart
		reanchor := !s.started || start < now+s.margin
		if reanchor {
			start = now + s.margin
		}
		if err := s.sink.Schedule(start, c); err != nil {
			s.stats.Failed++
			return scheduled, fmt.Errorf("failed to schedule chunk %d: %w", c.Seq, err)
		}

		if s.started && reanchor {
			s.stats.Reanchors++
			s.log.Debugw("cursor re-anchored", "seq", c.Seq, "late_frames", now-s.nextStart)
		}

		s.nextStart = start + int64(c.Frames())
		s.started = true
		s.stats.Scheduled++
		scheduled++
	}
}

// NextStart returns the cursor in frames
func (s *Scheduler) NextStart() int64 {
	return s.nextStart
}

// NextStartTime returns the cursor as time since the device opened
func (s *Scheduler) NextStartTime() time.Duration {
	return s.format.FramesToDuration(s.nextStart)
}

// Ahead returns how much scheduled audio has not played yet
func (s *Scheduler) Ahead() time.Duration {
	ahead := s.nextStart - s.sink.Now()
	if ahead <= 0 {
		return 0
	}
	return s.format.FramesToDuration(ahead)
}

// Stats returns scheduler statistics
func (s *Scheduler) Stats() SchedulerStats {
	return s.stats
}
