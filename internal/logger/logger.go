// Package logger provides the process-wide structured logger.
//
// The logger is backed by zap and exposed through thin package-level
// helpers so callers never hold a logger reference. It starts as a no-op
// logger and becomes active once Initialize is called with the loaded
// logging configuration.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

func init() {
	// Safe no-op logger until Initialize runs; prevents nil panics when
	// packages log during early startup or in tests.
	log = zap.NewNop().Sugar()
}

// Initialize builds the global logger.
//
// Parameters:
//   - level: minimum level (DEBUG, INFO, WARN, ERROR; case-insensitive)
//   - format: "text" for console output, "json" for structured output
//   - output: "stdout", "stderr", or a file path
//
// Returns an error if the level is unknown or the output file cannot be
// opened.
func Initialize(level, format, output string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}

	sink, err := openSink(output)
	if err != nil {
		return err
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(format) {
	case "", "text":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	case "json":
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	default:
		return fmt.Errorf("unknown log format: %q", format)
	}

	core := zapcore.NewCore(encoder, sink, lvl)
	log = zap.New(core).Sugar()

	return nil
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	_ = log.Sync()
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToUpper(level) {
	case "", "INFO":
		return zap.InfoLevel, nil
	case "DEBUG":
		return zap.DebugLevel, nil
	case "WARN":
		return zap.WarnLevel, nil
	case "ERROR":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("unknown log level: %q", level)
	}
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch output {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log output %q: %w", output, err)
		}
		return zapcore.AddSync(f), nil
	}
}

func Debug(format string, v ...any) {
	log.Debugf(format, v...)
}

func Info(format string, v ...any) {
	log.Infof(format, v...)
}

func Warn(format string, v ...any) {
	log.Warnf(format, v...)
}

func Error(format string, v ...any) {
	log.Errorf(format, v...)
}
