// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program and the channels that carry user input to the player
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Command is a session action requested from the keyboard
type Command int

const (
	CommandConnect Command = iota
	CommandDisconnect
	CommandDrain
)

// VolumeChangeMsg carries a volume or mute change
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// Controls holds channels for communication from the TUI to the player
type Controls struct {
	Commands chan Command
	Volume   chan VolumeChangeMsg
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Commands: make(chan Command, 10),
		Volume:   make(chan VolumeChangeMsg, 10),
	}
}

// send never blocks the UI; a full queue drops the keypress
func (c *Controls) send(cmd Command) {
	if c == nil {
		return
	}
	select {
	case c.Commands <- cmd:
	default:
	}
}

func (c *Controls) setVolume(volume int, muted bool) {
	if c == nil {
		return
	}
	select {
	case c.Volume <- VolumeChangeMsg{Volume: volume, Muted: muted}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls, volume int) Model {
	if volume <= 0 || volume > 100 {
		volume = 100
	}
	return Model{
		volume:   volume,
		controls: controls,
	}
}

// Run creates the TUI program
func Run(controls *Controls, volume int) *tea.Program {
	return tea.NewProgram(NewModel(controls, volume), tea.WithAltScreen())
}
