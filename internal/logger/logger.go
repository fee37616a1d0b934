// Package logger builds the zap loggers used by the commands and helps
// attach common fields.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console or JSON logger writing to stdout.
func New(json bool, debug bool) (*zap.Logger, error) {
	return NewWithOutput(json, debug, "stdout")
}

// NewWithOutput is New writing to the given zap output path, for commands
// that print their result to stdout.
func NewWithOutput(json bool, debug bool, output string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	if output == "" {
		output = "stdout"
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "step",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,

			NameKey:        "logger",
			EncodeDuration: zapcore.StringDurationEncoder,
		},
	}

	return cfg.Build()
}
