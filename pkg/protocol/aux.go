// ABOUTME: Auxiliary msgpack packets carrying tempo alongside PCM
// ABOUTME: Only the bpm field is consumed, pcm is ignored
package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// PayloadMode selects how binary messages are interpreted
type PayloadMode int

const (
	// PayloadPCM treats each binary message as raw interleaved PCM
	PayloadPCM PayloadMode = iota
	// PayloadMsgpack treats each binary message as an AuxPacket
	PayloadMsgpack
)

// ParsePayloadMode maps a config name to a PayloadMode
func ParsePayloadMode(name string) (PayloadMode, error) {
	switch name {
	case "", "pcm":
		return PayloadPCM, nil
	case "msgpack":
		return PayloadMsgpack, nil
	default:
		return 0, fmt.Errorf("unknown payload mode %q (want pcm or msgpack)", name)
	}
}

func (m PayloadMode) String() string {
	if m == PayloadMsgpack {
		return "msgpack"
	}
	return "pcm"
}

// AuxPacket is the auxiliary channel container
type AuxPacket struct {
	PCM   []byte  `msgpack:"pcm"`
	Tempo float64 `msgpack:"bpm"`
}

// DecodeAux unpacks an auxiliary packet
func DecodeAux(data []byte) (AuxPacket, error) {
	var pkt AuxPacket
	if err := msgpack.Unmarshal(data, &pkt); err != nil {
		return AuxPacket{}, fmt.Errorf("failed to decode aux packet: %w", err)
	}
	return pkt, nil
}

// EncodeAux packs an auxiliary packet
func EncodeAux(pkt AuxPacket) ([]byte, error) {
	data, err := msgpack.Marshal(&pkt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode aux packet: %w", err)
	}
	return data, nil
}
