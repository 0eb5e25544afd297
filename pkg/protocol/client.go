// ABOUTME: WebSocket client for the pcmstream protocol
// ABOUTME: Dials the server, sends control text and classifies incoming frames
package protocol

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected is returned when sending on a closed client
var ErrNotConnected = errors.New("not connected")

// Config holds client configuration
type Config struct {
	// ServerAddr is passed through opaquely; ws:// is assumed when no
	// scheme is given
	ServerAddr       string
	HandshakeTimeout time.Duration
	Logger           *zap.SugaredLogger
}

// Client represents a WebSocket client
type Client struct {
	config Config
	log    *zap.SugaredLogger
	conn   *websocket.Conn
	mu     sync.Mutex

	messages chan Message
	err      error

	connected bool
	closing   bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = 5 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:   config,
		log:      logger,
		messages: make(chan Message, 100),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// URL returns the address the client dials
func (c *Client) URL() string {
	return NormalizeURL(c.config.ServerAddr)
}

// NormalizeURL prefixes a bare host:port with ws://
func NormalizeURL(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return "ws://" + addr
}

// Connect establishes the WebSocket connection and starts the reader
func (c *Client) Connect(ctx context.Context) error {
	u := c.URL()
	c.log.Infow("connecting", "url", u)

	dialer := websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readMessages()

	return nil
}

// Messages returns the classified frames. The channel is closed when the
// connection ends; Err then reports why.
func (c *Client) Messages() <-chan Message {
	return c.messages
}

// Err returns the read error that ended the connection, or nil for a
// clean close. Only meaningful once Messages is closed.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// readMessages reads and classifies incoming frames
func (c *Client) readMessages() {
	defer close(c.messages)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			switch {
			case c.closing:
				// closed locally
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				c.log.Infow("server closed connection", "reason", err)
			default:
				c.err = err
				c.log.Warnw("read error", "error", err)
			}
			c.connected = false
			c.mu.Unlock()
			return
		}

		msg := Classify(messageType, data)

		select {
		case c.messages <- msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// SendText sends a text frame
func (c *Client) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("failed to send %q: %w", text, err)
	}
	return nil
}

// Close closes the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.closing {
		c.cancel()
		return nil
	}

	c.closing = true
	c.connected = false
	c.cancel()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))

	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	c.log.Infow("connection closed")
	return nil
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
