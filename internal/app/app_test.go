// ABOUTME: Tests for the player application
// ABOUTME: Tests server resolution, output volume and headless runs against a test server
package app

import (
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/pcmstream/internal/config"
	"github.com/harperreed/pcmstream/internal/discovery"
	"github.com/harperreed/pcmstream/pkg/audio/output"
	"github.com/harperreed/pcmstream/pkg/protocol"
)

func testConfig(server string) *config.Config {
	cfg := config.Default()
	cfg.Server = server
	cfg.NoTUI = true
	cfg.Output.Backend = "null"
	return &cfg
}

func testServer(t *testing.T, handshake string, chunks int) string {
	t.Helper()

	frame := make([]byte, 4)
	binary.LittleEndian.PutUint16(frame[0:], uint16(1000))
	binary.LittleEndian.PutUint16(frame[2:], uint16(0xFC18)) // -1000
	payload := []byte(strings.Repeat(string(frame), 480))

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, data, err := conn.ReadMessage(); err != nil || string(data) != protocol.OpenToken {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(handshake)); err != nil {
			return
		}
		if _, data, err := conn.ReadMessage(); err != nil || string(data) != protocol.AcceptToken {
			return
		}

		for i := 0; i < chunks; i++ {
			if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				return
			}
		}

		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(100 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	return strings.TrimPrefix(srv.URL, "http://")
}

func runWithTimeout(t *testing.T, a *App, ctx context.Context) error {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestRunUntilServerCloses(t *testing.T) {
	a := New(testConfig(testServer(t, "2 44100", 20)), nil)

	if err := runWithTimeout(t, a, context.Background()); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
}

func TestRunInvalidHandshake(t *testing.T) {
	a := New(testConfig(testServer(t, "two 44100", 0)), nil)

	err := runWithTimeout(t, a, context.Background())
	if !errors.Is(err, protocol.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestRunConnectionRefused(t *testing.T) {
	a := New(testConfig("127.0.0.1:1"), nil)

	if err := runWithTimeout(t, a, context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestRunContextCancelled(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	a := New(testConfig(strings.TrimPrefix(srv.URL, "http://")), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := runWithTimeout(t, a, ctx); err != nil {
		t.Fatalf("expected nil on shutdown, got %v", err)
	}
}

func TestRunBadHandshakeSetting(t *testing.T) {
	cfg := testConfig("127.0.0.1:1")
	cfg.Handshake = "both"

	if err := New(cfg, nil).Run(context.Background()); err == nil {
		t.Fatal("expected error for unknown handshake")
	}
}

func TestResolveServer(t *testing.T) {
	a := New(testConfig("radio.local:7001"), nil)
	server, err := a.resolveServer(context.Background())
	if err != nil || server != "radio.local:7001" {
		t.Fatalf("expected configured server, got %q %v", server, err)
	}

	cfg := testConfig("")
	cfg.Discover = 0
	a = New(cfg, nil)
	if _, err := a.resolveServer(context.Background()); !errors.Is(err, ErrNoServer) {
		t.Fatalf("expected ErrNoServer, got %v", err)
	}

	cfg = testConfig("")
	cfg.Discover = time.Second
	a = New(cfg, nil)
	a.discover = func(ctx context.Context, c discovery.Config) (*discovery.ServerInfo, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected discovery deadline")
		}
		return &discovery.ServerInfo{Name: "Den", Host: "10.0.0.2", Port: 7001}, nil
	}
	server, err = a.resolveServer(context.Background())
	if err != nil || server != "ws://10.0.0.2:7001" {
		t.Fatalf("expected discovered server, got %q %v", server, err)
	}

	a.discover = func(ctx context.Context, c discovery.Config) (*discovery.ServerInfo, error) {
		return nil, discovery.ErrNoServer
	}
	if _, err := a.resolveServer(context.Background()); !errors.Is(err, discovery.ErrNoServer) {
		t.Fatalf("expected wrapped discovery error, got %v", err)
	}
}

type volumeOutput struct {
	output.Output
	volumes []int
}

func (v *volumeOutput) SetVolume(volume int) {
	v.volumes = append(v.volumes, volume)
}

func TestOutputsVolumeBeforeDevice(t *testing.T) {
	o := newOutputs("null", "", 80, nil)

	// Changes before any device exists only update the settings
	o.SetVolume(60, false)
	if v, muted := o.Volume(); v != 60 || muted {
		t.Errorf("expected 60 unmuted, got %d %v", v, muted)
	}

	o.SetVolume(0, false)
	if _, muted := o.Volume(); !muted {
		t.Error("expected zero volume to mute")
	}
}

func TestOutputsApplyToCurrentDevice(t *testing.T) {
	o := newOutputs("null", "", 80, nil)

	var opened []output.Options
	dev := &volumeOutput{Output: output.NewNull(output.Options{})}
	o.open = func(name string, opts output.Options) (output.Output, error) {
		if name != "null" {
			t.Errorf("expected null backend, got %s", name)
		}
		opened = append(opened, opts)
		return dev, nil
	}

	if _, err := o.New(); err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if opened[0].Volume != 80 || opened[0].Muted {
		t.Errorf("unexpected options %+v", opened[0])
	}

	o.SetVolume(40, false)
	o.SetVolume(40, true)
	o.SetVolume(0, false)

	want := []int{40, 0, 0}
	if len(dev.volumes) != len(want) {
		t.Fatalf("expected %d volume calls, got %v", len(want), dev.volumes)
	}
	for i := range want {
		if dev.volumes[i] != want[i] {
			t.Errorf("call %d: expected %d, got %d", i, want[i], dev.volumes[i])
		}
	}

	// The next session's device starts muted
	if _, err := o.New(); err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !opened[1].Muted {
		t.Errorf("expected muted options, got %+v", opened[1])
	}
}
