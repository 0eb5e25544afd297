// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines application state, key handling and the status view
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/pcmstream/pkg/audio"
	"github.com/harperreed/pcmstream/pkg/pcmstream"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	controls *Controls

	// Connection
	state      pcmstream.State
	serverName string
	sessionID  string
	lastErr    string

	// Stream
	negotiated bool
	sampleRate int
	channels   int
	bitDepth   int
	encoding   string

	// Buffer
	buffered  int
	threshold int
	ahead     time.Duration

	// Playback
	volume int
	muted  bool
	tempo  float64
	peakDB float64

	// Stats
	received    int64
	scheduled   int64
	dropped     int64
	malformed   int64
	starvations int64
	reanchors   int64

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderStreamInfo())
	b.WriteString(m.renderControls())
	b.WriteString(m.renderStats())

	if m.showDebug {
		b.WriteString(m.renderDebug())
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n" + m.renderHelp()
}

func field(name, value string) string {
	return headerStyle.Render(fmt.Sprintf("%-8s", name)) + " " + valueStyle.Render(value) + "\n"
}

// renderHeader renders connection state
func (m Model) renderHeader() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("pcmstream"))
	b.WriteString("\n\n")

	server := m.serverName
	if server == "" {
		server = "(none)"
	}
	b.WriteString(field("Server:", server))
	b.WriteString(field("State:", stateLabel(m.state)))
	if m.lastErr != "" {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s", "Error:")) + " " + errorStyle.Render(truncate(m.lastErr, 48)) + "\n")
	}
	return b.String()
}

// renderStreamInfo renders the negotiated format
func (m Model) renderStreamInfo() string {
	if !m.negotiated {
		return field("Format:", "not negotiated")
	}
	return field("Format:", fmt.Sprintf("%dHz %s %d-bit %s",
		m.sampleRate, channelName(m.channels), m.bitDepth, m.encoding))
}

// renderControls renders volume and buffer status
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}

	s := "\n"
	s += field("Volume:", fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon))
	s += field("Buffer:", fmt.Sprintf("[%s] %d/%d chunks", renderBar(m.buffered, m.threshold, 10), m.buffered, m.threshold))
	s += field("Ahead:", m.ahead.Round(time.Millisecond).String())
	s += field("Level:", fmt.Sprintf("%.1f dBFS peak", m.peakDB))
	if m.tempo != 0 {
		s += field("Tempo:", fmt.Sprintf("%.1f bpm", m.tempo))
	}
	return s
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	return "\n" + field("Stats:", fmt.Sprintf("RX: %d  Played: %d  Dropped: %d  Starved: %d",
		m.received, m.scheduled, m.dropped+m.malformed, m.starvations))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return helpStyle.Render("c:Connect  x:Disconnect  s:Drain  ↑/↓:Volume  m:Mute  d:Debug  q:Quit")
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return "\n" + field("Session:", m.sessionID) +
		field("Debug:", fmt.Sprintf("malformed %d  dropped %d  re-anchors %d", m.malformed, m.dropped, m.reanchors))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "c":
		m.controls.send(CommandConnect)
	case "x":
		m.controls.send(CommandDisconnect)
	case "s":
		m.controls.send(CommandDrain)
	case "up":
		if m.volume < 100 {
			m.volume += 5
			if m.volume > 100 {
				m.volume = 100
			}
			m.controls.setVolume(m.volume, m.muted)
		}
	case "down":
		if m.volume > 0 {
			m.volume -= 5
			if m.volume < 0 {
				m.volume = 0
			}
			m.controls.setVolume(m.volume, m.muted)
		}
	case "m":
		m.muted = !m.muted
		m.controls.setVolume(m.volume, m.muted)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	m.state = msg.State
	m.sessionID = msg.SessionID
	if msg.ServerName != "" {
		m.serverName = msg.ServerName
	}
	if msg.Err != "" {
		m.lastErr = msg.Err
	} else if msg.State.Active() {
		m.lastErr = ""
	}

	m.negotiated = msg.Negotiated
	if msg.Negotiated {
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
		m.encoding = msg.Encoding
	}

	m.buffered = msg.Buffered
	if msg.Threshold != 0 {
		m.threshold = msg.Threshold
	}
	m.ahead = msg.Ahead

	if msg.Volume != 0 {
		m.volume = msg.Volume
	}
	if msg.Tempo != 0 {
		m.tempo = msg.Tempo
	}
	m.peakDB = msg.PeakDB

	m.received = msg.Received
	m.scheduled = msg.Scheduled
	m.dropped = msg.Dropped
	m.malformed = msg.Malformed
	m.starvations = msg.Starvations
	m.reanchors = msg.Reanchors
}

// StatusMsg updates TUI state
type StatusMsg struct {
	State       pcmstream.State
	ServerName  string
	SessionID   string
	Err         string
	Negotiated  bool
	SampleRate  int
	Channels    int
	BitDepth    int
	Encoding    string
	Buffered    int
	Threshold   int
	Ahead       time.Duration
	Volume      int
	Tempo       float64
	PeakDB      float64
	Received    int64
	Scheduled   int64
	Dropped     int64
	Malformed   int64
	Starvations int64
	Reanchors   int64
}

// NewStatusMsg converts a player snapshot into a TUI update
func NewStatusMsg(st pcmstream.Status) StatusMsg {
	msg := StatusMsg{
		State:       st.State,
		ServerName:  st.Server,
		SessionID:   st.SessionID,
		Negotiated:  st.Negotiated,
		Buffered:    st.Buffered,
		Threshold:   st.Threshold,
		Ahead:       st.Ahead,
		Tempo:       st.Stats.Tempo,
		PeakDB:      audio.Decibels(st.Stats.Level.Peak),
		Received:    st.Stats.Received,
		Scheduled:   st.Stats.Scheduled,
		Dropped:     st.Stats.Dropped,
		Malformed:   st.Stats.Malformed,
		Starvations: st.Stats.Starvations,
		Reanchors:   st.Stats.Reanchors,
	}
	if st.Negotiated {
		msg.SampleRate = st.Format.SampleRate
		msg.Channels = st.Format.Channels
		msg.BitDepth = st.Format.BitDepth
		msg.Encoding = st.Format.Encoding.String()
	}
	if st.Err != nil {
		msg.Err = st.Err.Error()
	}
	return msg
}

// Utility functions
func renderBar(value, max, width int) string {
	if max <= 0 {
		max = 1
	}
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

func stateLabel(s pcmstream.State) string {
	switch s {
	case pcmstream.StatePlaying:
		return "▶ " + s.String()
	case pcmstream.StateBuffering, pcmstream.StateConnecting, pcmstream.StateNegotiating:
		return "… " + s.String()
	case pcmstream.StateError:
		return "✗ " + s.String()
	default:
		return s.String()
	}
}
