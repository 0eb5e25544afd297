// ABOUTME: PCM streaming wire protocol package
// ABOUTME: Defines handshake parsing, message classification and WebSocket client
// Package protocol implements the pcmstream wire protocol.
//
// The exchange is:
//
//	client -> server  "open"
//	server -> client  "<channels> <sampleRate>" or
//	                  "<channels> <sampleRate> <bitsPerSample> <tag>"
//	client -> server  "accept"
//	server -> client  binary messages of interleaved PCM
//
// Messages coming off the socket are classified once at the transport
// boundary into a Message with Kind Handshake, Audio or Unknown.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:7001"})
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	client.SendText(protocol.OpenToken)
//	for msg := range client.Messages() {
//	    ...
//	}
package protocol
