// ABOUTME: PCM audio decoder
// ABOUTME: De-interleaves fixed-point, float and G.711 samples into [-1, 1] floats
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/harperreed/pcmstream/pkg/audio"
	"github.com/zaf/g711"
)

// ErrMalformedChunk is returned for chunks that cannot be split into whole frames
var ErrMalformedChunk = errors.New("malformed chunk")

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	format    audio.Format
	width     int
	sample    func(b []byte) float64
	malformed atomic.Int64
}

// NewPCM creates a new PCM decoder for a negotiated format
func NewPCM(format audio.Format) (*PCMDecoder, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format for PCM decoder: %w", err)
	}

	d := &PCMDecoder{
		format: format,
		width:  format.BytesPerSample(),
	}

	switch format.Encoding {
	case audio.EncodingInt:
		switch format.BitDepth {
		case 16:
			d.sample = sampleInt16
		case 24:
			d.sample = sampleInt24
		case 32:
			d.sample = sampleInt32
		}
	case audio.EncodingFloat:
		d.sample = sampleFloat32
	case audio.EncodingALaw:
		d.sample = sampleALaw
	case audio.EncodingULaw:
		d.sample = sampleULaw
	}

	return d, nil
}

// Decode converts interleaved bytes to per-channel samples.
// channelData[c][i] = raw[i*channels + c]
func (d *PCMDecoder) Decode(raw audio.RawChunk) (audio.Chunk, error) {
	data := raw.Data
	channels := d.format.Channels

	if len(data)%d.width != 0 {
		d.malformed.Add(1)
		return audio.Chunk{}, fmt.Errorf("%w: seq %d has %d bytes, not a multiple of %d-byte samples",
			ErrMalformedChunk, raw.Seq, len(data), d.width)
	}

	numSamples := len(data) / d.width
	if numSamples%channels != 0 {
		d.malformed.Add(1)
		return audio.Chunk{}, fmt.Errorf("%w: seq %d has %d samples, not a multiple of %d channels",
			ErrMalformedChunk, raw.Seq, numSamples, channels)
	}

	frames := numSamples / channels
	out := make([][]float64, channels)
	for c := range out {
		out[c] = make([]float64, frames)
	}

	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * d.width
			out[c][i] = d.sample(data[off : off+d.width])
		}
	}

	return audio.Chunk{Seq: raw.Seq, Channels: out}, nil
}

// Malformed returns the number of chunks rejected so far
func (d *PCMDecoder) Malformed() int64 {
	return d.malformed.Load()
}

func sampleInt16(b []byte) float64 {
	return audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(b)))
}

func sampleInt24(b []byte) float64 {
	return float64(audio.SampleFrom24Bit([3]byte{b[0], b[1], b[2]})) / 8388608.0
}

func sampleInt32(b []byte) float64 {
	return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648.0
}

func sampleFloat32(b []byte) float64 {
	v := float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

func sampleALaw(b []byte) float64 {
	return audio.SampleFromInt16(g711.DecodeAlawFrame(b[0]))
}

func sampleULaw(b []byte) float64 {
	return audio.SampleFromInt16(g711.DecodeUlawFrame(b[0]))
}
