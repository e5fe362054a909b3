// Package logging builds the zap logger used by every command. Hooks must
// never write diagnostics to stdout, so the default sink is a file in the
// cache directory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink names accepted in place of a file path.
const (
	SinkStdout = "stdout"
	SinkStderr = "stderr"
)

// LevelOff disables logging entirely.
const LevelOff = "off"

// Options configures New.
type Options struct {
	// Level is a zap level name (debug, info, warn, error) or "off".
	// Unknown names fall back to info.
	Level string

	// Format is "json" or "console".
	Format string

	// Path is a file path, "stdout" or "stderr". Empty means stderr.
	Path string
}

// New builds a logger from opts. The returned cleanup syncs and closes the
// sink; it is safe to call on every path.
func New(opts Options) (*zap.Logger, func(), error) {
	if strings.EqualFold(strings.TrimSpace(opts.Level), LevelOff) {
		return zap.NewNop(), func() {}, nil
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(opts.Level)))); err != nil || opts.Level == "" {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if opts.Format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	var (
		ws      zapcore.WriteSyncer
		closeFn = func() {}
	)
	switch opts.Path {
	case "", SinkStderr:
		ws = zapcore.Lock(os.Stderr)
	case SinkStdout:
		ws = zapcore.Lock(os.Stdout)
	default:
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
			return zap.NewNop(), func() {}, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return zap.NewNop(), func() {}, fmt.Errorf("open log file: %w", err)
		}
		ws = zapcore.Lock(f)
		closeFn = func() { _ = f.Close() } //nolint:errcheck
	}

	logger := zap.New(zapcore.NewCore(enc, ws, level), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, func() {
		_ = logger.Sync() //nolint:errcheck
		closeFn()
	}, nil
}
