// ABOUTME: Entry point for the pcmstream player
// ABOUTME: Parses CLI flags over the config file and starts the player application
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/pcmstream/internal/app"
	"github.com/harperreed/pcmstream/internal/config"
	"github.com/harperreed/pcmstream/internal/logging"
	"github.com/harperreed/pcmstream/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(run).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// flags holds values that override the loaded config when set
type flags struct {
	configPath  string
	handshake   string
	payload     string
	threshold   int
	maxBuffered int
	lead        time.Duration
	tick        time.Duration
	output      string
	outputFile  string
	volume      int
	logLevel    string
	logFile     string
	noTUI       bool
	discover    time.Duration
}

func newRootCmd(runFn func(cfg *config.Config) error) *cobra.Command {
	def := config.Default()
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:           version.Product + " [server-url]",
		Short:         "Play a raw PCM stream from a WebSocket server",
		Version:       version.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Server = args[0]
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runFn(cfg)
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})

	fl := rootCmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	fl.StringVar(&f.handshake, "handshake", def.Handshake, "Handshake layout: auto, minimal or extended")
	fl.StringVar(&f.payload, "payload", def.Payload, "Binary payload: pcm or msgpack")
	fl.IntVar(&f.threshold, "threshold", def.Buffer.Threshold, "Chunks buffered before playback starts")
	fl.IntVar(&f.maxBuffered, "max-buffered", def.Buffer.MaxBuffered, "Jitter buffer capacity, 0 = unbounded")
	fl.DurationVar(&f.lead, "lead", def.Buffer.Lead, "How far ahead of the device chunks are scheduled")
	fl.DurationVar(&f.tick, "tick", def.Buffer.Tick, "Scheduler poll interval")
	fl.StringVarP(&f.output, "output", "o", def.Output.Backend, "Audio output: oto, portaudio, wav or null")
	fl.StringVar(&f.outputFile, "output-file", def.Output.File, "WAV path for --output wav")
	fl.IntVar(&f.volume, "volume", def.Output.Volume, "Volume 0-100")
	fl.StringVar(&f.logLevel, "log-level", def.Log.Level, "Log level: debug, info, warn or error")
	fl.StringVar(&f.logFile, "log-file", def.Log.File, "Log file path")
	fl.BoolVar(&f.noTUI, "no-tui", false, "Disable TUI, use streaming logs instead")
	fl.DurationVar(&f.discover, "discover", def.Discover, "Browse mDNS for a server this long when no URL is given (0 disables)")

	return rootCmd
}

// apply copies flags the user set onto cfg
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()

	if fl.Changed("handshake") {
		cfg.Handshake = f.handshake
	}
	if fl.Changed("payload") {
		cfg.Payload = f.payload
	}
	if fl.Changed("threshold") {
		cfg.Buffer.Threshold = f.threshold
	}
	if fl.Changed("max-buffered") {
		cfg.Buffer.MaxBuffered = f.maxBuffered
	}
	if fl.Changed("lead") {
		cfg.Buffer.Lead = f.lead
	}
	if fl.Changed("tick") {
		cfg.Buffer.Tick = f.tick
	}
	if fl.Changed("output") {
		cfg.Output.Backend = f.output
	}
	if fl.Changed("output-file") {
		cfg.Output.File = f.outputFile
	}
	if fl.Changed("volume") {
		cfg.Output.Volume = f.volume
	}
	if fl.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fl.Changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if fl.Changed("no-tui") {
		cfg.NoTUI = f.noTUI
	}
	if fl.Changed("discover") {
		cfg.Discover = f.discover
	}
}

func run(cfg *config.Config) error {
	// TUI mode logs only to file; streaming mode logs to stdout and file
	log, cleanup, err := logging.Init(cfg.Log.Level, cfg.Log.File, cfg.NoTUI)
	if err != nil {
		return err
	}
	defer cleanup()

	log.Infow("starting", "version", version.String(), "tui", !cfg.NoTUI)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, log).Run(ctx); err != nil {
		log.Errorw("player stopped with error", "error", err)
		return err
	}

	log.Infow("player stopped")
	return nil
}
