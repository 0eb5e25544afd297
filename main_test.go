// ABOUTME: Tests for CLI argument handling
// ABOUTME: Tests flag, env and config file precedence and the version command
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/pcmstream/internal/config"
	"github.com/harperreed/pcmstream/internal/version"
)

func execute(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var got *config.Config
	cmd := newRootCmd(func(cfg *config.Config) error {
		got = cfg
		return nil
	})
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	return got, err
}

func TestDefaults(t *testing.T) {
	cfg, err := execute(t)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if cfg.Buffer.Threshold != 5 {
		t.Errorf("expected threshold 5, got %d", cfg.Buffer.Threshold)
	}
	if cfg.Output.Backend != "oto" {
		t.Errorf("expected oto, got %s", cfg.Output.Backend)
	}
	if cfg.NoTUI {
		t.Error("expected TUI enabled by default")
	}
}

func TestServerArgAndFlags(t *testing.T) {
	cfg, err := execute(t, "ws://radio:7001",
		"--threshold", "8",
		"--lead", "250ms",
		"-o", "null",
		"--handshake", "extended",
		"--no-tui")
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if cfg.Server != "ws://radio:7001" {
		t.Errorf("expected server from argument, got %s", cfg.Server)
	}
	if cfg.Buffer.Threshold != 8 {
		t.Errorf("expected threshold 8, got %d", cfg.Buffer.Threshold)
	}
	if cfg.Buffer.Lead != 250*time.Millisecond {
		t.Errorf("expected lead 250ms, got %v", cfg.Buffer.Lead)
	}
	if cfg.Output.Backend != "null" || cfg.Handshake != "extended" || !cfg.NoTUI {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pcmstream.yaml")
	body := "server: file:7001\nbuffer:\n  threshold: 9\n  max_buffered: 50\noutput:\n  backend: wav\n  file: a.wav\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("PCMSTREAM_THRESHOLD", "7")
	t.Setenv("PCMSTREAM_SERVER", "env:7001")

	cfg, err := execute(t, "--config", path, "--threshold", "6")
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	// flag beats env beats file
	if cfg.Buffer.Threshold != 6 {
		t.Errorf("expected flag threshold 6, got %d", cfg.Buffer.Threshold)
	}
	if cfg.Server != "env:7001" {
		t.Errorf("expected env server, got %s", cfg.Server)
	}
	if cfg.Buffer.MaxBuffered != 50 || cfg.Output.Backend != "wav" {
		t.Errorf("expected file values kept, got %+v", cfg)
	}
}

func TestInvalidFlagValue(t *testing.T) {
	if _, err := execute(t, "--volume", "150"); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := execute(t, "--lead", "soon"); err == nil {
		t.Fatal("expected parse error for duration")
	}
	if _, err := execute(t, "a", "b"); err == nil {
		t.Fatal("expected error for two servers")
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd(func(cfg *config.Config) error {
		t.Fatal("run should not be called")
		return nil
	})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != version.String() {
		t.Errorf("unexpected version output %q", out.String())
	}
}
