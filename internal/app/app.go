// ABOUTME: Main player application orchestration
// ABOUTME: Coordinates discovery, the player session, output volume and the TUI
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/pcmstream/internal/config"
	"github.com/harperreed/pcmstream/internal/discovery"
	"github.com/harperreed/pcmstream/internal/ui"
	"github.com/harperreed/pcmstream/pkg/pcmstream"
	"github.com/harperreed/pcmstream/pkg/protocol"
	"go.uber.org/zap"
)

const statusInterval = 250 * time.Millisecond

// ErrNoServer is returned when no server address is configured and discovery is off
var ErrNoServer = errors.New("no server address given")

// App runs one player with its outer layers
type App struct {
	config *config.Config
	log    *zap.SugaredLogger

	// overridable in tests
	dialer   pcmstream.Dialer
	discover func(ctx context.Context, cfg discovery.Config) (*discovery.ServerInfo, error)

	outputs *outputs
	states  chan pcmstream.Status
	tuiProg *tea.Program
}

// New creates the application
func New(cfg *config.Config, log *zap.SugaredLogger) *App {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &App{
		config:   cfg,
		log:      log,
		discover: discovery.Discover,
		states:   make(chan pcmstream.Status, 16),
	}
}

// Run blocks until ctx ends or the TUI quits. Without the TUI it also
// returns when the session ends, with the session error if it failed.
func (a *App) Run(ctx context.Context) error {
	server, err := a.resolveServer(ctx)
	if err != nil {
		return err
	}

	arity, err := protocol.ParseArity(a.config.Handshake)
	if err != nil {
		return err
	}
	payload, err := protocol.ParsePayloadMode(a.config.Payload)
	if err != nil {
		return err
	}

	a.outputs = newOutputs(a.config.Output.Backend, a.config.Output.File, a.config.Output.Volume, a.log)

	player, err := pcmstream.NewPlayer(pcmstream.PlayerConfig{
		ServerAddr:    server,
		Handshake:     arity,
		Payload:       payload,
		Threshold:     a.config.Buffer.Threshold,
		MaxBuffered:   a.config.Buffer.MaxBuffered,
		Lead:          a.config.Buffer.Lead,
		Tick:          a.config.Buffer.Tick,
		NewOutput:     a.outputs.New,
		Dialer:        a.dialer,
		Logger:        a.log,
		OnStateChange: a.onStateChange,
		OnTempo: func(bpm float64) {
			a.log.Debugw("tempo", "bpm", bpm)
		},
		OnError: func(err error) {
			a.log.Errorw("player error", "error", err)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	defer player.Close()

	var (
		commands <-chan ui.Command
		volumes  <-chan ui.VolumeChangeMsg
		tuiDone  chan error
	)
	if !a.config.NoTUI {
		controls := ui.NewControls()
		commands = controls.Commands
		volumes = controls.Volume

		a.tuiProg = ui.Run(controls, a.config.Output.Volume)
		tuiDone = make(chan error, 1)
		go func() {
			_, err := a.tuiProg.Run()
			tuiDone <- err
		}()
	}

	a.log.Infow("connecting", "server", server, "handshake", arity.String(), "payload", payload.String(),
		"output", a.config.Output.Backend)
	if err := player.Connect(); err != nil {
		return err
	}

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Infow("shutdown signal received")
			if a.tuiProg != nil {
				a.tuiProg.Quit()
				<-tuiDone
			}
			return nil

		case err := <-tuiDone:
			a.log.Infow("received quit from TUI")
			return err

		case st := <-a.states:
			a.logState(st)
			a.updateTUI(ui.NewStatusMsg(st))
			if a.config.NoTUI && st.State.Terminal() {
				return st.Err
			}

		case <-ticker.C:
			a.updateTUI(ui.NewStatusMsg(player.Status()))

		case cmd := <-commands:
			a.handleCommand(player, cmd)

		case vol := <-volumes:
			a.log.Infow("volume change", "volume", vol.Volume, "muted", vol.Muted)
			a.outputs.SetVolume(vol.Volume, vol.Muted)
		}
	}
}

func (a *App) resolveServer(ctx context.Context) (string, error) {
	if a.config.Server != "" {
		return a.config.Server, nil
	}
	if a.config.Discover <= 0 {
		return "", ErrNoServer
	}

	a.log.Infow("starting server discovery", "timeout", a.config.Discover)

	dctx, cancel := context.WithTimeout(ctx, a.config.Discover)
	defer cancel()

	server, err := a.discover(dctx, discovery.Config{Logger: a.log})
	if err != nil {
		return "", fmt.Errorf("server discovery failed: %w", err)
	}

	a.log.Infow("discovered server", "name", server.Name, "addr", server.URL())
	return server.URL(), nil
}

// onStateChange runs on the player loop and must not block
func (a *App) onStateChange(st pcmstream.Status) {
	select {
	case a.states <- st:
	default:
		a.log.Warnw("status update dropped", "state", st.State.String())
	}
}

func (a *App) handleCommand(player *pcmstream.Player, cmd ui.Command) {
	var err error
	switch cmd {
	case ui.CommandConnect:
		err = player.Connect()
	case ui.CommandDisconnect:
		err = player.Disconnect()
	case ui.CommandDrain:
		err = player.Drain()
	}
	if err != nil {
		a.log.Warnw("command failed", "command", int(cmd), "error", err)
	}
}

func (a *App) logState(st pcmstream.Status) {
	fields := []any{"session", st.SessionID, "state", st.State.String(), "buffered", st.Buffered}
	if st.Negotiated {
		fields = append(fields, "channels", st.Format.Channels, "rate", st.Format.SampleRate)
	}
	if st.Err != nil {
		fields = append(fields, "error", st.Err)
		a.log.Warnw("session state", fields...)
		return
	}
	a.log.Infow("session state", fields...)
}

func (a *App) updateTUI(msg ui.StatusMsg) {
	if a.tuiProg != nil {
		msg.Volume, _ = a.outputs.Volume()
		a.tuiProg.Send(msg)
	}
}
