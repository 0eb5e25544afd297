// ABOUTME: Structured logging setup
// ABOUTME: Builds the zap logger, writes to file and optionally stdout, captures the std logger
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init builds a sugared logger at the given level. Logs always go to file;
// with console set they are also written to stdout. The returned function
// flushes the logger and closes the file.
func Init(level, file string, console bool) (*zap.SugaredLogger, func(), error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening log file: %w", err)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(f)}
	if console {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}

	logger := New(lvl, zapcore.NewMultiWriteSyncer(sinks...))
	restore := zap.RedirectStdLog(logger)

	cleanup := func() {
		_ = logger.Sync()
		restore()
		_ = f.Close()
	}

	return logger.Sugar(), cleanup, nil
}

// New builds a JSON logger writing to w
func New(level zapcore.Level, w zapcore.WriteSyncer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, zap.NewAtomicLevelAt(level))
	return zap.New(core)
}
