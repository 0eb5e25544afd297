// ABOUTME: Tagged message variant produced at the transport boundary
// ABOUTME: Classifies WebSocket frames as handshake text, audio or unknown
package protocol

import (
	"github.com/gorilla/websocket"
)

// Kind identifies what a transport message carries
type Kind int

const (
	// KindUnknown is anything the session does not understand
	KindUnknown Kind = iota
	// KindHandshake is a text frame
	KindHandshake
	// KindAudio is a binary frame
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindHandshake:
		return "handshake"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Message is one frame received from the server
type Message struct {
	Kind Kind
	Text string // set for KindHandshake
	Data []byte // set for KindAudio
}

// Classify converts a WebSocket frame into a Message
func Classify(messageType int, data []byte) Message {
	switch messageType {
	case websocket.TextMessage:
		return Message{Kind: KindHandshake, Text: string(data)}
	case websocket.BinaryMessage:
		return Message{Kind: KindAudio, Data: data}
	default:
		return Message{Kind: KindUnknown}
	}
}
