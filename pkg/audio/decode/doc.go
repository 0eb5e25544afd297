// ABOUTME: PCM frame decoder package
// ABOUTME: Provides Decoder interface and the fixed-point/float/G.711 implementation
// Package decode turns raw PCM chunks into normalized, per-channel samples.
//
// Supports: signed little-endian integers (16, 24, 32-bit), 32-bit float,
// and G.711 A-law/µ-law.
//
// A chunk whose sample count is not a multiple of the channel count is
// malformed: it is rejected with ErrMalformedChunk and counted, never
// partially decoded.
//
// Example:
//
//	decoder, err := decode.NewPCM(format)
//	chunk, err := decoder.Decode(audio.RawChunk{Seq: 1, Data: payload})
package decode
