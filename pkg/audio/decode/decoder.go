// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for raw chunk to per-channel sample decoders
package decode

import "github.com/harperreed/pcmstream/pkg/audio"

// Decoder converts a raw interleaved chunk into de-interleaved samples
type Decoder interface {
	// Decode converts one transport message into a Chunk
	Decode(raw audio.RawChunk) (audio.Chunk, error)

	// Malformed returns how many chunks have been dropped as malformed
	Malformed() int64
}
