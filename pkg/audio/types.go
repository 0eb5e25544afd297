// ABOUTME: Audio type definitions
// ABOUTME: Defines the negotiated stream format, raw and decoded chunks
package audio

import (
	"errors"
	"fmt"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

const (
	// MaxChannels is the largest channel count a peer may announce
	MaxChannels = 32
	// MaxSampleRate is the highest sample rate a peer may announce
	MaxSampleRate = 768000
)

// Encoding is the sample encoding announced by the peer
type Encoding int

const (
	// EncodingInt is signed little-endian fixed point
	EncodingInt Encoding = iota
	// EncodingFloat is little-endian IEEE-754
	EncodingFloat
	// EncodingALaw is G.711 A-law
	EncodingALaw
	// EncodingULaw is G.711 µ-law
	EncodingULaw
)

// ErrUnknownEncoding is returned by ParseEncoding for unrecognised tags
var ErrUnknownEncoding = errors.New("unknown sample encoding")

func (e Encoding) String() string {
	switch e {
	case EncodingInt:
		return "int"
	case EncodingFloat:
		return "float"
	case EncodingALaw:
		return "alaw"
	case EncodingULaw:
		return "ulaw"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// ParseEncoding maps a handshake format tag to an Encoding
func ParseEncoding(tag string) (Encoding, error) {
	switch tag {
	case "int":
		return EncodingInt, nil
	case "float":
		return EncodingFloat, nil
	case "alaw":
		return EncodingALaw, nil
	case "ulaw":
		return EncodingULaw, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEncoding, tag)
	}
}

// Format describes the audio stream format negotiated for a session.
// A Format is a value: once a session stores it, it is never mutated.
type Format struct {
	Channels   int
	SampleRate int
	BitDepth   int // 16 when the peer sends the minimal handshake
	Encoding   Encoding
}

// Validate checks that the format can be decoded and played
func (f Format) Validate() error {
	if f.Channels <= 0 {
		return fmt.Errorf("channel count must be positive, got %d", f.Channels)
	}
	if f.Channels > MaxChannels {
		return fmt.Errorf("channel count %d exceeds maximum %d", f.Channels, MaxChannels)
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.SampleRate > MaxSampleRate {
		return fmt.Errorf("sample rate %d exceeds maximum %d", f.SampleRate, MaxSampleRate)
	}

	switch f.Encoding {
	case EncodingInt:
		if f.BitDepth != 16 && f.BitDepth != 24 && f.BitDepth != 32 {
			return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", f.BitDepth)
		}
	case EncodingFloat:
		if f.BitDepth != 32 {
			return fmt.Errorf("unsupported float bit depth: %d (supported: 32)", f.BitDepth)
		}
	case EncodingALaw, EncodingULaw:
		if f.BitDepth != 8 {
			return fmt.Errorf("unsupported %s bit depth: %d (supported: 8)", f.Encoding, f.BitDepth)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEncoding, f.Encoding)
	}

	return nil
}

// BytesPerSample returns the width of one sample on the wire
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// FramesToDuration converts a frame count at this sample rate to a duration
func (f Format) FramesToDuration(frames int64) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	rate := int64(f.SampleRate)
	// split so frames*time.Second cannot overflow on long sessions
	sec, rem := frames/rate, frames%rate
	return time.Duration(sec)*time.Second + time.Duration(rem*int64(time.Second)/rate)
}

// DurationToFrames converts a duration to a whole number of frames
func (f Format) DurationToFrames(d time.Duration) int64 {
	rate := int64(f.SampleRate)
	sec, rem := int64(d/time.Second), int64(d%time.Second)
	return sec*rate + rem*rate/int64(time.Second)
}

func (f Format) String() string {
	return fmt.Sprintf("%dch %dHz %d-bit %s", f.Channels, f.SampleRate, f.BitDepth, f.Encoding)
}

// RawChunk is one binary message as received from the transport
type RawChunk struct {
	Seq  uint64 // assigned by the receiver, monotonic per session
	Data []byte
}

// Chunk is decoded, de-interleaved audio normalized to [-1, 1]
type Chunk struct {
	Seq      uint64
	Channels [][]float64
}

// Frames returns the number of samples per channel
func (c Chunk) Frames() int {
	if len(c.Channels) == 0 {
		return 0
	}
	return len(c.Channels[0])
}

// Duration returns the playback length of the chunk at the given rate
func (c Chunk) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(c.Frames()) * int64(time.Second) / int64(sampleRate))
}

// SampleFromInt16 converts a 16-bit sample to the [-1, 1) range
func SampleFromInt16(sample int16) float64 {
	return float64(sample) / 32768.0
}

// SampleToInt16 converts a normalized sample back to 16-bit with clipping
func SampleToInt16(sample float64) int16 {
	scaled := sample * 32768.0
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}

// SampleFrom24Bit converts 24-bit packed bytes (little-endian) to int32
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// Interleave lays per-channel samples out frame by frame
func Interleave(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels)
	frames := len(channels[0])
	out := make([]float64, frames*n)
	for c, data := range channels {
		for i, s := range data {
			out[i*n+c] = s
		}
	}
	return out
}
