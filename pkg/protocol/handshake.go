// ABOUTME: Handshake negotiator for the textual format descriptor
// ABOUTME: Parses "<channels> <rate> [<bits> <tag>]" into an audio.Format
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/harperreed/pcmstream/pkg/audio"
)

const (
	// OpenToken is sent by the client once the transport is up
	OpenToken = "open"
	// AcceptToken is sent by the client after a valid handshake
	AcceptToken = "accept"
)

var (
	// ErrInvalidFormat is returned for handshake text that cannot be parsed
	ErrInvalidFormat = errors.New("invalid format")
	// ErrUnexpectedMessage is returned for text arriving after acceptance
	ErrUnexpectedMessage = errors.New("unexpected message")
)

// Arity selects which handshake layout a deployment speaks
type Arity int

const (
	// ArityAuto accepts both the minimal and the extended layout
	ArityAuto Arity = 0
	// ArityMinimal is "<channels> <sampleRate>"
	ArityMinimal Arity = 2
	// ArityExtended is "<channels> <sampleRate> <bitsPerSample> <tag>"
	ArityExtended Arity = 4
)

// ParseArity maps a config name to an Arity
func ParseArity(name string) (Arity, error) {
	switch name {
	case "", "auto":
		return ArityAuto, nil
	case "minimal":
		return ArityMinimal, nil
	case "extended":
		return ArityExtended, nil
	default:
		return 0, fmt.Errorf("unknown handshake arity %q (want auto, minimal or extended)", name)
	}
}

func (a Arity) String() string {
	switch a {
	case ArityAuto:
		return "auto"
	case ArityMinimal:
		return "minimal"
	case ArityExtended:
		return "extended"
	default:
		return fmt.Sprintf("arity(%d)", int(a))
	}
}

// ParseFormat parses the server's format descriptor.
// Every failure wraps ErrInvalidFormat.
func ParseFormat(text string, arity Arity) (audio.Format, error) {
	fields := strings.Fields(text)

	switch arity {
	case ArityAuto:
		if len(fields) != int(ArityMinimal) && len(fields) != int(ArityExtended) {
			return audio.Format{}, fmt.Errorf("%w: expected 2 or 4 fields, got %d", ErrInvalidFormat, len(fields))
		}
	case ArityMinimal, ArityExtended:
		if len(fields) != int(arity) {
			return audio.Format{}, fmt.Errorf("%w: expected %d fields, got %d", ErrInvalidFormat, int(arity), len(fields))
		}
	default:
		return audio.Format{}, fmt.Errorf("%w: unsupported arity %s", ErrInvalidFormat, arity)
	}

	channels, err := parseField("channel count", fields[0])
	if err != nil {
		return audio.Format{}, err
	}
	sampleRate, err := parseField("sample rate", fields[1])
	if err != nil {
		return audio.Format{}, err
	}

	format := audio.Format{
		Channels:   channels,
		SampleRate: sampleRate,
		BitDepth:   16,
		Encoding:   audio.EncodingInt,
	}

	if len(fields) == int(ArityExtended) {
		bits, err := parseField("bits per sample", fields[2])
		if err != nil {
			return audio.Format{}, err
		}
		enc, err := audio.ParseEncoding(strings.ToLower(fields[3]))
		if err != nil {
			return audio.Format{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		format.BitDepth = bits
		format.Encoding = enc
	}

	if err := format.Validate(); err != nil {
		return audio.Format{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	return format, nil
}

func parseField(name, field string) (int, error) {
	v, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", ErrInvalidFormat, name, field)
	}
	return v, nil
}
