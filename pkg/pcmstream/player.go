// ABOUTME: High-level Player API for pcmstream
// ABOUTME: Serializes transport, timer, output and user events into one session loop
package pcmstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/pcmstream/pkg/audio"
	"github.com/harperreed/pcmstream/pkg/audio/output"
	"github.com/harperreed/pcmstream/pkg/jitter"
	"github.com/harperreed/pcmstream/pkg/protocol"
	"go.uber.org/zap"
)

// ErrPlayerClosed is returned by commands issued after Close
var ErrPlayerClosed = errors.New("player closed")

// Conn is an established transport
type Conn interface {
	Transport
	Messages() <-chan protocol.Message
	Err() error
}

// Dialer opens transports
type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// WebSocketDialer dials with the protocol package's WebSocket client
type WebSocketDialer struct {
	HandshakeTimeout time.Duration
	Logger           *zap.SugaredLogger
}

// Dial connects to addr
func (d WebSocketDialer) Dial(ctx context.Context, addr string) (Conn, error) {
	client := protocol.NewClient(protocol.Config{
		ServerAddr:       addr,
		HandshakeTimeout: d.HandshakeTimeout,
		Logger:           d.Logger,
	})
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// PlayerConfig holds player configuration
type PlayerConfig struct {
	// ServerAddr is the server address, passed through to the dialer
	ServerAddr string

	Handshake protocol.Arity
	Payload   protocol.PayloadMode

	// Threshold is the number of chunks buffered before playback (default: 5)
	Threshold int

	// MaxBuffered caps the jitter buffer; 0 is unbounded
	MaxBuffered int

	// Lead is how far ahead of the device chunks are scheduled (default: 100ms)
	Lead time.Duration

	// Tick is the scheduler polling interval (default: 10ms)
	Tick time.Duration

	// NewOutput creates the audio device for each session (default: oto)
	NewOutput func() (output.Output, error)

	Dialer Dialer
	Logger *zap.SugaredLogger

	// OnStateChange is called when the session state changes
	OnStateChange func(Status)

	// OnTempo is called for each tempo value on the auxiliary channel
	OnTempo func(bpm float64)

	// OnError is called when a session fails
	OnError func(error)
}

// Status is a snapshot of the player
type Status struct {
	SessionID  string
	State      State
	Server     string
	Format     audio.Format
	Negotiated bool
	Buffered   int
	Threshold  int
	NextStart  time.Duration // playback cursor since the device opened
	Ahead      time.Duration // scheduled audio not yet played
	Stats      Stats
	Err        error
}

// Player provides audio playback from a pcmstream server
type Player struct {
	config PlayerConfig
	log    *zap.SugaredLogger

	// loop-owned
	session *Session
	conn    Conn
	msgs    <-chan protocol.Message

	commands chan func()
	ended    chan struct{}

	mu     sync.Mutex
	status Status

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayer creates a new player and starts its event loop
func NewPlayer(config PlayerConfig) (*Player, error) {
	if config.Threshold == 0 {
		config.Threshold = jitter.DefaultThreshold
	}
	if config.Threshold < 0 {
		return nil, fmt.Errorf("threshold must be positive, got %d", config.Threshold)
	}
	if config.MaxBuffered < 0 {
		return nil, fmt.Errorf("max buffered must not be negative, got %d", config.MaxBuffered)
	}
	if config.Lead == 0 {
		config.Lead = DefaultLead
	}
	if config.Tick == 0 {
		config.Tick = DefaultTick
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}
	if config.Dialer == nil {
		config.Dialer = WebSocketDialer{Logger: config.Logger}
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Player{
		config:   config,
		log:      config.Logger,
		commands: make(chan func()),
		ended:    make(chan struct{}, 64),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		status: Status{
			State:     StateIdle,
			Server:    config.ServerAddr,
			Threshold: config.Threshold,
		},
	}

	go p.run()

	return p, nil
}

// Connect starts a new session. It is a no-op while a session is active.
func (p *Player) Connect() error {
	return p.submit(func() {
		if p.session != nil && p.session.State().Active() {
			p.log.Debugw("connect ignored, session active", "state", p.session.State().String())
			return
		}

		s := NewSession(p.sessionConfig())
		p.session = s
		s.Connect()

		go p.dial(s)
	})
}

// Disconnect ends the current session
func (p *Player) Disconnect() error {
	return p.submit(func() {
		if p.session != nil {
			p.session.Disconnect()
		}
		p.dropConn()
	})
}

// Drain stops receiving and lets buffered audio finish before closing
func (p *Player) Drain() error {
	return p.submit(func() {
		if p.session != nil && p.session.Drain() {
			p.dropConn()
		}
	})
}

// Status returns the latest snapshot
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Close disconnects and stops the event loop
func (p *Player) Close() error {
	p.Disconnect()
	p.cancel()
	<-p.done
	return nil
}

func (p *Player) sessionConfig() SessionConfig {
	return SessionConfig{
		Handshake:   p.config.Handshake,
		Payload:     p.config.Payload,
		Threshold:   p.config.Threshold,
		MaxBuffered: p.config.MaxBuffered,
		Lead:        p.config.Lead,
		NewOutput:   p.config.NewOutput,
		OnEnded:     p.notifyEnded,
		OnTempo:     p.config.OnTempo,
		Logger:      p.log,
	}
}

// notifyEnded runs on the audio thread and must not block
func (p *Player) notifyEnded() {
	select {
	case p.ended <- struct{}{}:
	default:
	}
}

func (p *Player) submit(fn func()) error {
	select {
	case p.commands <- fn:
		return nil
	case <-p.ctx.Done():
		return ErrPlayerClosed
	}
}

func (p *Player) dial(s *Session) {
	conn, err := p.config.Dialer.Dial(p.ctx, p.config.ServerAddr)

	serr := p.submit(func() {
		if p.session != s || s.State() != StateConnecting {
			if conn != nil {
				conn.Close()
			}
			return
		}
		if err != nil {
			s.TransportClosed(fmt.Errorf("connection failed: %w", err))
			return
		}

		p.conn = conn
		p.msgs = conn.Messages()
		s.Opened(conn)
		if s.State().Terminal() {
			p.dropConn()
		}
	})
	if serr != nil && conn != nil {
		conn.Close()
	}
}

func (p *Player) dropConn() {
	p.conn = nil
	p.msgs = nil
}

func (p *Player) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			if p.session != nil {
				p.session.Disconnect()
			}
			p.publish()
			return

		case fn := <-p.commands:
			fn()

		case msg, ok := <-p.msgs:
			if !ok {
				err := p.conn.Err()
				p.dropConn()
				if p.session != nil {
					p.session.TransportClosed(err)
				}
				break
			}
			if p.session != nil {
				p.session.HandleMessage(msg)
			}

		case <-ticker.C:
			if p.session != nil {
				p.session.Tick()
			}

		case <-p.ended:
			if p.session != nil {
				p.session.Tick()
			}
		}

		if p.session != nil && p.session.State().Terminal() && p.conn != nil {
			p.dropConn()
		}
		p.publish()
	}
}

// publish snapshots the session and fires callbacks on state changes
func (p *Player) publish() {
	st := Status{
		State:     StateIdle,
		Server:    p.config.ServerAddr,
		Threshold: p.config.Threshold,
	}

	if s := p.session; s != nil {
		st.SessionID = s.ID()
		st.State = s.State()
		st.Format, st.Negotiated = s.Format()
		st.Buffered = s.Buffered()
		st.NextStart = s.NextStartTime()
		st.Ahead = s.Ahead()
		st.Stats = s.Stats()
		st.Err = s.Err()
	}

	p.mu.Lock()
	prev := p.status
	p.status = st
	p.mu.Unlock()

	if prev.State == st.State && prev.SessionID == st.SessionID {
		return
	}

	if p.config.OnStateChange != nil {
		p.config.OnStateChange(st)
	}
	if st.State == StateError && st.Err != nil && p.config.OnError != nil {
		p.config.OnError(st.Err)
	}
}
