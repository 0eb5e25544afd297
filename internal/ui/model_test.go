// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling and helper functions
package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/pcmstream/pkg/audio"
	"github.com/harperreed/pcmstream/pkg/pcmstream"
)

func TestNewModel(t *testing.T) {
	model := NewModel(nil, 0) // Controls are optional for testing

	if model.state != pcmstream.StateIdle {
		t.Errorf("expected idle state initially, got %s", model.state)
	}

	if model.volume != 100 {
		t.Errorf("expected default volume 100, got %d", model.volume)
	}

	if model.muted {
		t.Error("expected muted to be false initially")
	}

	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
}

func TestNewStatusMsg(t *testing.T) {
	st := pcmstream.Status{
		SessionID: "abc",
		State:     pcmstream.StatePlaying,
		Server:    "ws://localhost:7001",
		Format: audio.Format{
			Channels:   2,
			SampleRate: 44100,
			BitDepth:   16,
			Encoding:   audio.EncodingInt,
		},
		Negotiated: true,
		Buffered:   3,
		Threshold:  5,
		NextStart:  3 * time.Hour,
		Ahead:      80 * time.Millisecond,
		Stats: pcmstream.Stats{
			Received:    100,
			Scheduled:   95,
			Dropped:     2,
			Malformed:   1,
			Starvations: 1,
			Tempo:       120,
			Level:       audio.Level{Peak: 1},
		},
	}

	msg := NewStatusMsg(st)

	if msg.State != pcmstream.StatePlaying || msg.SessionID != "abc" {
		t.Errorf("unexpected state fields: %+v", msg)
	}
	if msg.SampleRate != 44100 || msg.Channels != 2 || msg.Encoding != "int" {
		t.Errorf("unexpected format fields: %+v", msg)
	}
	if msg.Ahead != 80*time.Millisecond {
		t.Errorf("expected ahead from scheduled audio, not the cursor, got %v", msg.Ahead)
	}
	if msg.PeakDB != 0 {
		t.Errorf("expected full scale peak at 0 dBFS, got %v", msg.PeakDB)
	}
	if msg.Err != "" {
		t.Errorf("expected no error, got %q", msg.Err)
	}

	st.State = pcmstream.StateError
	st.Err = errors.New("boom")
	if msg := NewStatusMsg(st); msg.Err != "boom" {
		t.Errorf("expected error text, got %q", msg.Err)
	}
}

func TestStatusMsgConnected(t *testing.T) {
	model := NewModel(nil, 0)

	model.applyStatus(StatusMsg{
		State:      pcmstream.StateBuffering,
		ServerName: "test-server",
		Threshold:  5,
	})

	if model.state != pcmstream.StateBuffering {
		t.Errorf("expected buffering, got %s", model.state)
	}

	if model.serverName != "test-server" {
		t.Errorf("expected serverName 'test-server', got '%s'", model.serverName)
	}

	if model.threshold != 5 {
		t.Errorf("expected threshold 5, got %d", model.threshold)
	}
}

func TestStatusMsgErrorClearedOnReconnect(t *testing.T) {
	model := NewModel(nil, 0)

	model.applyStatus(StatusMsg{State: pcmstream.StateError, Err: "connection refused"})
	if model.lastErr != "connection refused" {
		t.Fatalf("expected error recorded, got %q", model.lastErr)
	}

	// A closed session keeps the last error visible
	model.applyStatus(StatusMsg{State: pcmstream.StateClosed})
	if model.lastErr == "" {
		t.Error("error should survive a closed status")
	}

	model.applyStatus(StatusMsg{State: pcmstream.StateConnecting})
	if model.lastErr != "" {
		t.Errorf("expected error cleared on new session, got %q", model.lastErr)
	}
}

func TestStatusMsgStreamInfo(t *testing.T) {
	model := NewModel(nil, 0)

	model.applyStatus(StatusMsg{
		Negotiated: true,
		SampleRate: 48000,
		Channels:   2,
		BitDepth:   24,
		Encoding:   "int",
	})

	if model.sampleRate != 48000 {
		t.Errorf("expected sampleRate 48000, got %d", model.sampleRate)
	}

	if model.channels != 2 {
		t.Errorf("expected channels 2, got %d", model.channels)
	}

	if model.bitDepth != 24 {
		t.Errorf("expected bitDepth 24, got %d", model.bitDepth)
	}
}

func TestStatusMsgStats(t *testing.T) {
	model := NewModel(nil, 0)

	model.applyStatus(StatusMsg{
		Received:    1000,
		Scheduled:   950,
		Dropped:     50,
		Starvations: 2,
		Buffered:    4,
	})

	if model.received != 1000 {
		t.Errorf("expected received 1000, got %d", model.received)
	}

	if model.scheduled != 950 {
		t.Errorf("expected scheduled 950, got %d", model.scheduled)
	}

	if model.dropped != 50 {
		t.Errorf("expected dropped 50, got %d", model.dropped)
	}

	if model.starvations != 2 {
		t.Errorf("expected starvations 2, got %d", model.starvations)
	}

	if model.buffered != 4 {
		t.Errorf("expected buffered 4, got %d", model.buffered)
	}
}

func TestStatusMsgZeroValues(t *testing.T) {
	model := NewModel(nil, 0)

	model.applyStatus(StatusMsg{Volume: 75, Tempo: 128, Received: 100})
	model.applyStatus(StatusMsg{Volume: 0, Tempo: 0, Received: 0})

	// Volume and tempo are sticky; counters follow the snapshot
	if model.volume != 75 {
		t.Errorf("volume should not be updated to 0, got %d", model.volume)
	}
	if model.tempo != 128 {
		t.Errorf("tempo should not be cleared, got %v", model.tempo)
	}
	if model.received != 0 {
		t.Error("received stats should be updated to 0")
	}
}

func TestHandleKeyCommands(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls, 50)

	keys := []struct {
		key  string
		want Command
	}{
		{"c", CommandConnect},
		{"x", CommandDisconnect},
		{"s", CommandDrain},
	}

	for _, k := range keys {
		updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k.key)})
		model = updated.(Model)

		select {
		case got := <-controls.Commands:
			if got != k.want {
				t.Errorf("key %q: expected command %d, got %d", k.key, k.want, got)
			}
		default:
			t.Errorf("key %q: no command sent", k.key)
		}
	}
}

func TestHandleKeyVolume(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls, 50)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyUp})
	model = updated.(Model)

	if model.volume != 55 {
		t.Errorf("expected volume 55, got %d", model.volume)
	}
	if change := <-controls.Volume; change.Volume != 55 || change.Muted {
		t.Errorf("unexpected volume change %+v", change)
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	model = updated.(Model)

	if !model.muted {
		t.Error("expected muted after m")
	}
	if change := <-controls.Volume; !change.Muted {
		t.Errorf("expected mute change, got %+v", change)
	}

	model.volume = 100
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyUp})
	model = updated.(Model)
	if model.volume != 100 {
		t.Errorf("expected volume capped at 100, got %d", model.volume)
	}
}

func TestHandleKeyQuit(t *testing.T) {
	model := NewModel(nil, 0)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestViewRendersState(t *testing.T) {
	model := NewModel(nil, 0)

	if model.View() != "Loading..." {
		t.Error("expected loading view before window size")
	}

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model = updated.(Model)
	model.applyStatus(StatusMsg{
		State:      pcmstream.StatePlaying,
		ServerName: "ws://radio:7001",
		Negotiated: true,
		SampleRate: 44100,
		Channels:   2,
		BitDepth:   16,
		Encoding:   "int",
		Threshold:  5,
	})

	view := model.View()
	for _, want := range []string{"ws://radio:7001", "playing", "44100Hz Stereo 16-bit int"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"this is longer than allowed", 10, "this is..."},
		{"", 10, ""},
		{"abcd", 4, "abcd"},
		{"abcde", 4, "a..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q",
				tt.input, tt.maxLen, result, tt.expected)
		}
	}
}

func TestChannelNameFunction(t *testing.T) {
	tests := []struct {
		channels int
		expected string
	}{
		{1, "Mono"},
		{2, "Stereo"},
		{3, "3ch"},
		{6, "6ch"},
	}

	for _, tt := range tests {
		result := channelName(tt.channels)
		if result != tt.expected {
			t.Errorf("channelName(%d) = %q, expected %q",
				tt.channels, result, tt.expected)
		}
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(5, 10, 4); got != "██░░" {
		t.Errorf("unexpected bar %q", got)
	}
	// Zero max must not divide by zero
	if got := renderBar(3, 0, 2); got != "██" {
		t.Errorf("unexpected bar %q", got)
	}
}
