// ABOUTME: FIFO jitter buffer with start threshold and drop-oldest overflow
// ABOUTME: Rejects data before format negotiation and zero-frame chunks
package jitter

import (
	"errors"

	"github.com/harperreed/pcmstream/pkg/audio"
)

const (
	// DefaultThreshold is the number of chunks buffered before playback starts
	DefaultThreshold = 5
	// DefaultCapacity bounds the queue; the oldest chunk is dropped beyond it
	DefaultCapacity = 200
)

var (
	// ErrPrematureData is returned when audio arrives before the format is known
	ErrPrematureData = errors.New("audio data before format negotiation")
	// ErrEmptyChunk is returned for chunks with no frames
	ErrEmptyChunk = errors.New("chunk has no frames")
	// ErrEmpty is returned by Dequeue when nothing is buffered
	ErrEmpty = errors.New("jitter buffer empty")
)

// Stats tracks buffer activity
type Stats struct {
	Enqueued int64
	Dequeued int64
	Dropped  int64 // oldest chunks evicted at capacity
	Rejected int64 // premature or empty chunks
}

// Buffer is a FIFO of decoded chunks
type Buffer struct {
	chunks    []audio.Chunk
	head      int
	threshold int
	capacity  int
	armed     bool

	stats Stats
}

// New creates a jitter buffer. A capacity of 0 leaves the queue unbounded.
func New(threshold, capacity int) *Buffer {
	if threshold < 1 {
		threshold = 1
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{
		threshold: threshold,
		capacity:  capacity,
	}
}

// Arm marks the stream format as negotiated so chunks are accepted
func (b *Buffer) Arm() {
	b.armed = true
}

// Armed reports whether Arm has been called since the last Reset
func (b *Buffer) Armed() bool {
	return b.armed
}

// Enqueue appends a chunk to the tail
func (b *Buffer) Enqueue(c audio.Chunk) error {
	if !b.armed {
		b.stats.Rejected++
		return ErrPrematureData
	}
	if c.Frames() == 0 {
		b.stats.Rejected++
		return ErrEmptyChunk
	}

	if b.capacity > 0 && b.Len() >= b.capacity {
		b.chunks[b.head] = audio.Chunk{}
		b.head++
		b.stats.Dropped++
		b.compact()
	}

	b.chunks = append(b.chunks, c)
	b.stats.Enqueued++
	return nil
}

// Dequeue removes and returns the head chunk
func (b *Buffer) Dequeue() (audio.Chunk, error) {
	if b.Len() == 0 {
		return audio.Chunk{}, ErrEmpty
	}

	c := b.chunks[b.head]
	b.chunks[b.head] = audio.Chunk{}
	b.head++
	b.stats.Dequeued++
	b.compact()

	return c, nil
}

// Len returns the number of buffered chunks
func (b *Buffer) Len() int {
	return len(b.chunks) - b.head
}

// Ready reports whether enough chunks are buffered to start playback
func (b *Buffer) Ready() bool {
	return b.Len() >= b.threshold
}

// Threshold returns the start threshold
func (b *Buffer) Threshold() int {
	return b.threshold
}

// Reset discards all chunks and disarms the buffer
func (b *Buffer) Reset() {
	b.chunks = nil
	b.head = 0
	b.armed = false
}

// Stats returns buffer statistics
func (b *Buffer) Stats() Stats {
	return b.stats
}

// compact reclaims the consumed prefix once it dominates the slice
func (b *Buffer) compact() {
	if b.head == len(b.chunks) {
		b.chunks = b.chunks[:0]
		b.head = 0
		return
	}
	if b.head >= 64 && b.head*2 >= len(b.chunks) {
		n := copy(b.chunks, b.chunks[b.head:])
		clear(b.chunks[n:])
		b.chunks = b.chunks[:n]
		b.head = 0
	}
}
