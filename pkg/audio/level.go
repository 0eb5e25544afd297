// ABOUTME: Signal level measurement for decoded chunks
// ABOUTME: Computes RMS and peak across all channels for the status display
package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Level holds the loudness of a chunk in linear units (0..1)
type Level struct {
	RMS  float64
	Peak float64
}

// MeasureLevel returns the RMS and absolute peak over every channel of c
func MeasureLevel(c Chunk) Level {
	var energy, peak float64
	var n int

	for _, ch := range c.Channels {
		if len(ch) == 0 {
			continue
		}
		energy += floats.Dot(ch, ch)
		n += len(ch)

		if hi := math.Abs(floats.Max(ch)); hi > peak {
			peak = hi
		}
		if lo := math.Abs(floats.Min(ch)); lo > peak {
			peak = lo
		}
	}

	if n == 0 {
		return Level{}
	}

	return Level{
		RMS:  math.Sqrt(energy / float64(n)),
		Peak: peak,
	}
}

// Decibels converts a linear level to dBFS, floored at -96
func Decibels(v float64) float64 {
	if v <= 0 {
		return -96
	}
	db := 20 * math.Log10(v)
	if db < -96 {
		return -96
	}
	return db
}
