// ABOUTME: Jitter buffer package for decoded audio chunks
// ABOUTME: FIFO queue with a fill threshold that gates the start of playback
// Package jitter provides the FIFO that absorbs arrival-time variance between
// the network and the playback scheduler.
//
// Chunks are played in exactly the order they were enqueued. Playback is
// allowed to begin once Len reaches the threshold; after that the buffer may
// fall below the threshold freely, and only a Dequeue on an empty buffer
// (ErrEmpty) signals starvation.
//
// Example:
//
//	buf := jitter.New(5, 200)
//	buf.Arm()
//	if err := buf.Enqueue(chunk); err != nil {
//	    // ErrPrematureData or ErrEmptyChunk: drop and continue
//	}
//	if buf.Ready() {
//	    next, _ := buf.Dequeue()
//	}
//
// A Buffer is not safe for concurrent use. It belongs to a single session
// event loop.
package jitter
