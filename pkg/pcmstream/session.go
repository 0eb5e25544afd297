// ABOUTME: Session state machine for one connection attempt
// ABOUTME: Negotiates the format, feeds decoder, buffer and scheduler, and cleans up
package pcmstream

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pcmstream/pkg/audio"
	"github.com/harperreed/pcmstream/pkg/audio/decode"
	"github.com/harperreed/pcmstream/pkg/audio/output"
	"github.com/harperreed/pcmstream/pkg/jitter"
	"github.com/harperreed/pcmstream/pkg/protocol"
	"go.uber.org/zap"
)

// Transport is the send side of a connection
type Transport interface {
	SendText(text string) error
	Close() error
}

// SessionConfig holds session configuration
type SessionConfig struct {
	Handshake   protocol.Arity
	Payload     protocol.PayloadMode
	Threshold   int
	MaxBuffered int
	Lead        time.Duration

	// NewOutput creates the device opened once the format is known
	NewOutput func() (output.Output, error)

	// OnEnded is attached to the output; called from the audio thread
	OnEnded func()

	OnStateChange func(from, to State)
	OnTempo       func(bpm float64)

	Logger *zap.SugaredLogger
}

// Stats contains session counters
type Stats struct {
	Received    int64
	Decoded     int64
	Malformed   int64
	Premature   int64
	Unexpected  int64
	Rejected    int64 // zero-frame chunks
	Dropped     int64 // evicted at buffer capacity
	Scheduled   int64
	Failed      int64 // chunks the output refused
	Starvations int64
	Reanchors   int64
	Tempo       float64
	Level       audio.Level
}

// Session aggregates the negotiated format, jitter buffer and playback
// cursor for one connection. It is not safe for concurrent use; every
// method must be called from the same event loop.
type Session struct {
	id     string
	config SessionConfig
	log    *zap.SugaredLogger

	state      State
	err        error
	transport  Transport
	format     audio.Format
	negotiated bool
	decoder    *decode.PCMDecoder
	buffer     *jitter.Buffer
	scheduler  *Scheduler
	out        output.Output
	seq        uint64

	stats     Stats
	scheduled SchedulerStats // kept once the scheduler is released
}

// NewSession creates an idle session
func NewSession(config SessionConfig) *Session {
	if config.Threshold <= 0 {
		config.Threshold = jitter.DefaultThreshold
	}
	if config.MaxBuffered < 0 {
		config.MaxBuffered = 0
	}
	if config.Lead <= 0 {
		config.Lead = DefaultLead
	}
	if config.NewOutput == nil {
		config.NewOutput = func() (output.Output, error) {
			return output.NewOto(output.Options{Logger: config.Logger}), nil
		}
	}

	id := uuid.New().String()
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Session{
		id:     id,
		config: config,
		log:    logger.With("session", id),
		state:  StateIdle,
		buffer: jitter.New(config.Threshold, config.MaxBuffered),
	}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return s.state
}

// Err returns the error that moved the session to StateError
func (s *Session) Err() error {
	return s.err
}

// Format returns the negotiated format, if any
func (s *Session) Format() (audio.Format, bool) {
	return s.format, s.negotiated
}

// Buffered returns the number of queued chunks
func (s *Session) Buffered() int {
	return s.buffer.Len()
}

// Threshold returns the playback start threshold
func (s *Session) Threshold() int {
	return s.buffer.Threshold()
}

// NextStartTime returns the playback cursor
func (s *Session) NextStartTime() time.Duration {
	if s.scheduler == nil {
		return 0
	}
	return s.scheduler.NextStartTime()
}

// Ahead returns how much scheduled audio the device has not played yet
func (s *Session) Ahead() time.Duration {
	if s.scheduler == nil {
		return 0
	}
	return s.scheduler.Ahead()
}

// Stats returns session counters
func (s *Session) Stats() Stats {
	st := s.stats
	if s.decoder != nil {
		st.Malformed = s.decoder.Malformed()
	}
	bs := s.buffer.Stats()
	st.Dropped = bs.Dropped
	st.Rejected = bs.Rejected

	ss := s.scheduled
	if s.scheduler != nil {
		ss = s.scheduler.Stats()
	}
	st.Scheduled = ss.Scheduled
	st.Failed = ss.Failed
	st.Reanchors = ss.Reanchors
	return st
}

// Connect starts the connection attempt. It returns false, doing nothing,
// when the session has already left idle.
func (s *Session) Connect() bool {
	if s.state != StateIdle {
		s.log.Debugw("connect ignored", "state", s.state.String())
		return false
	}
	s.setState(StateConnecting)
	return true
}

// Opened is called once the transport is up; it sends the open token
func (s *Session) Opened(t Transport) {
	if s.state != StateConnecting {
		s.log.Warnw("transport opened in unexpected state, closing", "state", s.state.String())
		t.Close()
		return
	}

	s.transport = t
	if err := t.SendText(protocol.OpenToken); err != nil {
		s.fail(fmt.Errorf("%w: %v", ErrTransport, err))
		return
	}
	s.setState(StateNegotiating)
}

// HandleMessage dispatches one message from the transport
func (s *Session) HandleMessage(msg protocol.Message) {
	if s.state.Terminal() || s.state == StateIdle {
		return
	}
	s.stats.Received++

	switch msg.Kind {
	case protocol.KindHandshake:
		s.handleText(msg.Text)
	case protocol.KindAudio:
		s.handleAudio(msg.Data)
	default:
		s.stats.Unexpected++
		s.log.Warnw("ignoring unknown message", "kind", int(msg.Kind))
	}
}

func (s *Session) handleText(text string) {
	if s.state == StateNegotiating {
		s.negotiate(text)
		return
	}

	s.stats.Unexpected++
	s.log.Warnw("ignoring text after negotiation", "error", protocol.ErrUnexpectedMessage, "text", text)
}

func (s *Session) negotiate(text string) {
	format, err := protocol.ParseFormat(text, s.config.Handshake)
	if err != nil {
		s.fail(err)
		return
	}

	decoder, err := decode.NewPCM(format)
	if err != nil {
		s.fail(fmt.Errorf("%w: %v", protocol.ErrInvalidFormat, err))
		return
	}

	out, err := s.config.NewOutput()
	if err != nil {
		s.fail(fmt.Errorf("failed to create output: %w", err))
		return
	}
	s.out = out
	if err := out.Open(format); err != nil {
		s.fail(fmt.Errorf("failed to open output: %w", err))
		return
	}
	if s.config.OnEnded != nil {
		out.OnEnded(s.config.OnEnded)
	}

	s.format = format
	s.negotiated = true
	s.decoder = decoder
	s.scheduler = NewScheduler(out, format, s.config.Lead, s.log)
	s.buffer.Arm()

	if err := s.transport.SendText(protocol.AcceptToken); err != nil {
		s.fail(fmt.Errorf("%w: %v", ErrTransport, err))
		return
	}

	s.log.Infow("format negotiated", "format", format.String())
	s.setState(StateBuffering)
}

func (s *Session) handleAudio(data []byte) {
	if s.state == StateDraining {
		return
	}
	if !s.buffer.Armed() {
		s.stats.Premature++
		s.log.Debugw("dropping audio before negotiation", "error", jitter.ErrPrematureData, "bytes", len(data))
		return
	}

	if s.config.Payload == protocol.PayloadMsgpack {
		s.handleAux(data)
		return
	}

	s.seq++
	chunk, err := s.decoder.Decode(audio.RawChunk{Seq: s.seq, Data: data})
	if err != nil {
		s.log.Debugw("dropping chunk", "error", err)
		return
	}
	s.stats.Decoded++
	s.stats.Level = audio.MeasureLevel(chunk)

	if err := s.buffer.Enqueue(chunk); err != nil {
		s.log.Debugw("chunk not enqueued", "seq", chunk.Seq, "error", err)
		return
	}

	s.pump()
}

func (s *Session) handleAux(data []byte) {
	pkt, err := protocol.DecodeAux(data)
	if err != nil {
		s.stats.Unexpected++
		s.log.Debugw("dropping aux packet", "error", err)
		return
	}

	s.stats.Tempo = pkt.Tempo
	if s.config.OnTempo != nil {
		s.config.OnTempo(pkt.Tempo)
	}
}

// Tick drives the scheduler from a timer or an output completion
func (s *Session) Tick() {
	s.pump()
}

func (s *Session) pump() {
	switch s.state {
	case StateBuffering:
		if !s.buffer.Ready() {
			return
		}
		s.setState(StatePlaying)
		s.step()
	case StatePlaying:
		s.step()
	case StateDraining:
		if errors.Is(s.step(), ErrStarved) {
			s.log.Infow("drain complete")
			s.cleanup()
			s.setState(StateClosed)
		}
	}
}

func (s *Session) step() error {
	_, err := s.scheduler.Step(s.buffer)
	switch {
	case err == nil:
	case errors.Is(err, ErrStarved):
		if s.state == StatePlaying {
			s.stats.Starvations++
			s.log.Warnw("buffer starved, rebuffering", "threshold", s.buffer.Threshold())
			s.setState(StateBuffering)
		}
	default:
		s.log.Warnw("chunk dropped", "error", err)
	}
	return err
}

// Drain stops receiving and lets queued audio play out before closing.
// It returns false when there is nothing to drain.
func (s *Session) Drain() bool {
	if s.state != StateBuffering && s.state != StatePlaying {
		return false
	}

	s.closeTransport()
	s.setState(StateDraining)
	s.pump()
	return true
}

// TransportClosed reports the end of the connection. A nil error is a
// clean close by the peer.
func (s *Session) TransportClosed(err error) {
	s.transport = nil

	switch {
	case s.state.Terminal() || s.state == StateIdle || s.state == StateDraining:
		return
	case err != nil:
		s.fail(fmt.Errorf("%w: %v", ErrTransport, err))
	default:
		s.log.Infow("transport closed by peer")
		s.cleanup()
		s.setState(StateClosed)
	}
}

// Disconnect tears the session down. Safe to call more than once.
func (s *Session) Disconnect() {
	if s.state.Terminal() {
		return
	}
	s.cleanup()
	s.setState(StateClosed)
}

func (s *Session) fail(err error) {
	s.err = err
	s.log.Errorw("session failed", "error", err)
	s.cleanup()
	s.setState(StateError)
}

// cleanup stops scheduling before the device is released so no callback
// can reach a closed output
func (s *Session) cleanup() {
	if s.scheduler != nil {
		s.scheduled = s.scheduler.Stats()
		s.scheduler = nil
	}

	if s.out != nil {
		s.out.OnEnded(nil)
		if err := s.out.Close(); err != nil {
			s.log.Warnw("failed to close output", "error", err)
		}
		s.out = nil
	}

	s.buffer.Reset()
	s.closeTransport()
}

func (s *Session) closeTransport() {
	if s.transport == nil {
		return
	}
	if err := s.transport.Close(); err != nil {
		s.log.Debugw("failed to close transport", "error", err)
	}
	s.transport = nil
}

func (s *Session) setState(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.log.Infow("state changed", "from", from.String(), "to", to.String())

	if s.config.OnStateChange != nil {
		s.config.OnStateChange(from, to)
	}
}
