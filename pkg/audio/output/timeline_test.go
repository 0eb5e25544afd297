// ABOUTME: Tests for the sample-clock timeline
// ABOUTME: Tests chunk placement, mixing, late chunks, volume and ended callbacks
package output

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/harperreed/pcmstream/pkg/audio"
)

func stereoChunk(frames int, value float64) audio.Chunk {
	left := make([]float64, frames)
	right := make([]float64, frames)
	for i := range left {
		left[i] = value
		right[i] = -value
	}
	return audio.Chunk{Channels: [][]float64{left, right}}
}

func TestTimelineSilenceWhenIdle(t *testing.T) {
	tl := NewTimeline(2)

	mix := tl.render(64)
	for c := range mix {
		for i, v := range mix[c] {
			if v != 0 {
				t.Fatalf("expected silence at ch %d frame %d, got %v", c, i, v)
			}
		}
	}

	if tl.Now() != 64 {
		t.Errorf("expected clock at 64, got %d", tl.Now())
	}
}

func TestTimelinePlacement(t *testing.T) {
	tl := NewTimeline(2)

	if err := tl.Schedule(10, stereoChunk(20, 0.5)); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	mix := tl.render(40)
	for i := 0; i < 40; i++ {
		want := 0.0
		if i >= 10 && i < 30 {
			want = 0.5
		}
		if mix[0][i] != want || mix[1][i] != -want {
			t.Fatalf("frame %d: expected %v/%v, got %v/%v", i, want, -want, mix[0][i], mix[1][i])
		}
	}
}

func TestTimelineSpansRenders(t *testing.T) {
	tl := NewTimeline(1)
	ramp := make([]float64, 100)
	for i := range ramp {
		ramp[i] = float64(i) / 100
	}
	tl.Schedule(0, audio.Chunk{Channels: [][]float64{ramp}})

	ended := 0
	tl.SetOnEnded(func() { ended++ })

	var got []float64
	for i := 0; i < 4; i++ {
		mix := tl.render(30)
		got = append(got, mix[0]...)
		if i < 3 && ended != 0 {
			t.Fatalf("chunk reported ended early after render %d", i)
		}
	}

	for i := range ramp {
		if got[i] != ramp[i] {
			t.Fatalf("frame %d: expected %v, got %v", i, ramp[i], got[i])
		}
	}
	if ended != 1 {
		t.Errorf("expected 1 ended callback, got %d", ended)
	}
	if tl.Pending() != 0 {
		t.Errorf("expected no pending segments, got %d", tl.Pending())
	}
}

func TestTimelineContiguousChunks(t *testing.T) {
	tl := NewTimeline(2)
	tl.Schedule(0, stereoChunk(50, 0.25))
	tl.Schedule(50, stereoChunk(50, 0.75))

	ended := 0
	tl.SetOnEnded(func() { ended++ })

	mix := tl.render(100)
	for i := 0; i < 100; i++ {
		want := 0.25
		if i >= 50 {
			want = 0.75
		}
		if mix[0][i] != want {
			t.Fatalf("frame %d: expected %v, got %v", i, want, mix[0][i])
		}
	}
	if ended != 2 {
		t.Errorf("expected 2 ended callbacks, got %d", ended)
	}
}

func TestTimelineLateChunk(t *testing.T) {
	tl := NewTimeline(2)
	tl.render(100)

	// Starts 20 frames in the past; only the remainder is audible
	tl.Schedule(80, stereoChunk(40, 0.5))

	mix := tl.render(40)
	for i := 0; i < 40; i++ {
		want := 0.0
		if i < 20 {
			want = 0.5
		}
		if mix[0][i] != want {
			t.Fatalf("frame %d: expected %v, got %v", i, want, mix[0][i])
		}
	}
}

func TestTimelineChannelMismatch(t *testing.T) {
	tl := NewTimeline(1)

	err := tl.Schedule(0, stereoChunk(10, 0.1))
	if !errors.Is(err, ErrChannelMismatch) {
		t.Fatalf("expected ErrChannelMismatch, got %v", err)
	}
}

func TestTimelineVolume(t *testing.T) {
	tl := NewTimeline(2)
	tl.SetVolume(50)
	tl.Schedule(0, stereoChunk(10, 0.8))

	mix := tl.render(10)
	if math.Abs(mix[0][0]-0.4) > 1e-12 {
		t.Errorf("expected 0.4 after half volume, got %v", mix[0][0])
	}

	tl.SetVolume(150)
	tl.Schedule(10, stereoChunk(10, 0.8))
	mix = tl.render(10)
	if mix[0][0] != 0.8 {
		t.Errorf("expected volume clamped to 100, got %v", mix[0][0])
	}
}

func TestTimelineRead(t *testing.T) {
	tl := NewTimeline(2)
	tl.Schedule(0, stereoChunk(4, 0.5))

	p := make([]byte, 4*2*2+1) // trailing byte is not a whole frame
	n, err := tl.Read(p)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != 16 {
		t.Fatalf("expected 16 bytes, got %d", n)
	}

	left := int16(binary.LittleEndian.Uint16(p[0:]))
	right := int16(binary.LittleEndian.Uint16(p[2:]))
	if left != 16384 || right != -16384 {
		t.Errorf("expected 16384/-16384, got %d/%d", left, right)
	}

	tl.Close()
	if _, err := tl.Read(p); err != io.EOF {
		t.Errorf("expected io.EOF after close, got %v", err)
	}
	if err := tl.Schedule(0, stereoChunk(1, 0)); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen after close, got %v", err)
	}
}

func TestTimelineReadFloat32(t *testing.T) {
	tl := NewTimeline(2)
	tl.Schedule(0, stereoChunk(3, 0.25))
	tl.Schedule(0, stereoChunk(3, 1.0)) // overlapping mix clips

	out := make([]float32, 6)
	tl.ReadFloat32(out)

	if out[0] != 1 || out[1] != -1 {
		t.Errorf("expected clipped samples, got %v %v", out[0], out[1])
	}
	if tl.Now() != 3 {
		t.Errorf("expected clock at 3, got %d", tl.Now())
	}
}
