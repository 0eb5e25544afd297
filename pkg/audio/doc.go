// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, RawChunk, Chunk types and sample conversion functions
// Package audio provides fundamental audio types used throughout pcmstream.
//
// This package defines:
//   - Format: the stream format negotiated once per session
//   - RawChunk: an interleaved binary block as received from the transport
//   - Chunk: decoded per-channel samples normalized to [-1, 1]
//
// It also provides sample conversion, interleaving and level helpers.
//
// Example:
//
//	format := audio.Format{
//	    Channels:   2,
//	    SampleRate: 44100,
//	    BitDepth:   16,
//	    Encoding:   audio.EncodingInt,
//	}
//
//	frames := format.DurationToFrames(100 * time.Millisecond)
package audio
