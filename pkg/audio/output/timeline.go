// ABOUTME: Sample-clock timeline shared by every output backend
// ABOUTME: Mixes scheduled chunks at absolute frame positions and reports chunk ends
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/harperreed/pcmstream/pkg/audio"
	"gonum.org/v1/gonum/floats"
)

type segment struct {
	start int64
	chunk audio.Chunk
}

func (s segment) end() int64 {
	return s.start + int64(s.chunk.Frames())
}

// Timeline places chunks on an absolute frame axis. The device side pulls
// rendered frames; the scheduler side reads Now and schedules ahead of it.
// Frames with nothing scheduled render as silence.
type Timeline struct {
	mu       sync.Mutex
	channels int
	pos      int64
	segments []segment
	gain     float64
	onEnded  func()
	closed   bool

	// scratch, only touched by the render caller
	mix [][]float64
}

// NewTimeline creates a timeline for the given channel count
func NewTimeline(channels int) *Timeline {
	return &Timeline{
		channels: channels,
		gain:     1,
	}
}

// Now returns the number of frames rendered so far
func (t *Timeline) Now() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

// Schedule places a chunk at start. Any part of it that is already in the
// past is skipped when rendering.
func (t *Timeline) Schedule(start int64, c audio.Chunk) error {
	if len(c.Channels) != t.channels {
		return fmt.Errorf("%w: got %d, want %d", ErrChannelMismatch, len(c.Channels), t.channels)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrNotOpen
	}
	t.segments = append(t.segments, segment{start: start, chunk: c})
	return nil
}

// Pending returns the number of scheduled chunks that have not finished
func (t *Timeline) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.segments)
}

// SetOnEnded registers the chunk-finished callback
func (t *Timeline) SetOnEnded(fn func()) {
	t.mu.Lock()
	t.onEnded = fn
	t.mu.Unlock()
}

// SetVolume sets the output gain (0-100)
func (t *Timeline) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	t.mu.Lock()
	t.gain = float64(volume) / 100.0
	t.mu.Unlock()
}

// Close drops all scheduled chunks; later reads return io.EOF
func (t *Timeline) Close() {
	t.mu.Lock()
	t.closed = true
	t.segments = nil
	t.onEnded = nil
	t.mu.Unlock()
}

// render mixes the next n frames and advances the clock
func (t *Timeline) render(n int) [][]float64 {
	t.mu.Lock()

	if len(t.mix) != t.channels || (t.channels > 0 && cap(t.mix[0]) < n) {
		t.mix = make([][]float64, t.channels)
		for c := range t.mix {
			t.mix[c] = make([]float64, n)
		}
	}
	for c := range t.mix {
		t.mix[c] = t.mix[c][:n]
		clear(t.mix[c])
	}

	from := t.pos
	to := t.pos + int64(n)
	ended := 0

	kept := t.segments[:0]
	for _, s := range t.segments {
		end := s.end()
		if s.start < to && end > from {
			a := max(s.start, from)
			b := min(end, to)
			for c := range t.mix {
				floats.Add(t.mix[c][a-from:b-from], s.chunk.Channels[c][a-s.start:b-s.start])
			}
		}
		if end <= to {
			ended++
			continue
		}
		kept = append(kept, s)
	}
	clear(t.segments[len(kept):])
	t.segments = kept
	t.pos = to

	if t.gain != 1 {
		for c := range t.mix {
			floats.Scale(t.gain, t.mix[c])
		}
	}

	fn := t.onEnded
	t.mu.Unlock()

	if fn != nil {
		for i := 0; i < ended; i++ {
			fn()
		}
	}

	return t.mix
}

func (t *Timeline) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Read renders interleaved signed 16-bit little-endian PCM
func (t *Timeline) Read(p []byte) (int, error) {
	if t.isClosed() {
		return 0, io.EOF
	}

	frameBytes := 2 * t.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	mix := t.render(frames)
	for i := 0; i < frames; i++ {
		for c := range mix {
			off := (i*t.channels + c) * 2
			binary.LittleEndian.PutUint16(p[off:], uint16(audio.SampleToInt16(mix[c][i])))
		}
	}

	return frames * frameBytes, nil
}

// ReadFloat32 renders interleaved float32 samples into out
func (t *Timeline) ReadFloat32(out []float32) {
	frames := len(out) / t.channels
	if frames == 0 || t.isClosed() {
		clear(out)
		return
	}

	mix := t.render(frames)
	for i := 0; i < frames; i++ {
		for c := range mix {
			v := mix[c][i]
			out[i*t.channels+c] = float32(math.Max(-1, math.Min(1, v)))
		}
	}
}
