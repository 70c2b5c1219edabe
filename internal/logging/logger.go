// Package logging builds the zap logger used for diagnostic output.
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // console, json
	Output io.Writer // defaults to stderr
}

// ForVerbosity returns the configuration for the CLI's --verbose flag.
func ForVerbosity(verbose bool) Config {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return Config{Level: level, Format: "console", Output: os.Stderr}
}

// New creates a zap logger from cfg.
func New(cfg Config) *zap.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.AddSync(output), parseLevel(cfg.Level))
	return zap.New(core)
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05.000"),
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	if format == "json" {
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}
