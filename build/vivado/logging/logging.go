// Package logging builds the structured run logger. Every run writes JSON
// lines to logs/flow.log under its output directory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const FileName = "flow.log"

// levels are the accepted log levels.
var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// New opens (truncating) dir/flow.log and returns a logger writing to it at
// the given level ("debug", "info", "warn", "error"), and a function that
// flushes and closes the file.
func New(dir, level string) (*zap.Logger, func() error, error) {
	lvl, ok := levels[level]
	if !ok {
		return nil, nil, fmt.Errorf("bad log level: %q", level)
	}
	p := filepath.Join(dir, FileName)
	f, err := os.Create(p)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create log file: %v:\n\t\t%w", p, err)
	}
	log := zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.Lock(f), lvl))
	closeFn := func() error {
		_ = log.Sync()
		return f.Close()
	}
	return log, closeFn, nil
}

// NewFactory adapts New to the shape the flow controller expects.
func NewFactory(level string) func(dir string) (*zap.Logger, func() error, error) {
	return func(dir string) (*zap.Logger, func() error, error) {
		return New(dir, level)
	}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

// ValidLevel reports whether level is accepted by New.
func ValidLevel(level string) bool {
	_, ok := levels[level]
	return ok
}
