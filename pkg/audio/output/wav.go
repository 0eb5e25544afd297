// ABOUTME: WAV file and null outputs
// ABOUTME: Record the scheduled stream to disk or discard it, paced in real time
package output

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/harperreed/pcmstream/pkg/audio"
)

// WAV writes rendered audio to a 16-bit WAV file
type WAV struct {
	*clockedSink

	path string
	file *os.File
	enc  *wav.Encoder
	buf  *goaudio.IntBuffer
}

// NewWAV creates a WAV file output
func NewWAV(opts Options) Output {
	return newWAV(opts, false)
}

func newWAV(opts Options, manual bool) *WAV {
	return &WAV{
		clockedSink: newClockedSink(opts, manual),
		path:        opts.Path,
	}
}

// Open creates the file and starts the clock
func (w *WAV) Open(format audio.Format) error {
	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}

	w.file = file
	w.enc = wav.NewEncoder(file, format.SampleRate, 16, format.Channels, 1)
	w.buf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		SourceBitDepth: 16,
	}

	if err := w.start(format, w.write); err != nil {
		file.Close()
		return err
	}

	w.log.Infow("audio output initialized", "backend", "wav", "path", w.path,
		"rate", format.SampleRate, "channels", format.Channels)
	return nil
}

func (w *WAV) write(mix [][]float64) error {
	if len(mix) == 0 {
		return nil
	}
	frames := len(mix[0])
	channels := len(mix)

	if cap(w.buf.Data) < frames*channels {
		w.buf.Data = make([]int, frames*channels)
	}
	w.buf.Data = w.buf.Data[:frames*channels]

	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			w.buf.Data[i*channels+c] = int(audio.SampleToInt16(mix[c][i]))
		}
	}

	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	return nil
}

// Close stops the clock and finalizes the file
func (w *WAV) Close() error {
	if !w.stop() {
		return nil
	}

	if err := w.enc.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close wav file: %w", err)
	}

	w.log.Infow("wav output closed", "path", w.path)
	return nil
}

// Null discards rendered audio
type Null struct {
	*clockedSink
}

// NewNull creates a null output
func NewNull(opts Options) Output {
	return newNull(opts, false)
}

func newNull(opts Options, manual bool) *Null {
	return &Null{clockedSink: newClockedSink(opts, manual)}
}

// Open starts the clock
func (n *Null) Open(format audio.Format) error {
	if err := n.start(format, nil); err != nil {
		return err
	}
	n.log.Infow("audio output initialized", "backend", "null", "rate", format.SampleRate, "channels", format.Channels)
	return nil
}

// Close stops the clock
func (n *Null) Close() error {
	n.stop()
	return nil
}
