// Package logging builds the zap logger shared by every component.
//
// Logs always go to stderr: stdout belongs to the interactive menu or,
// under "serve", to the MCP stdio transport.
package logging

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Formats lists the accepted format names.
func Formats() []string {
	return []string{FormatConsole, FormatJSON}
}

// IsFormat reports whether format is one of Formats.
func IsFormat(format string) bool {
	return slices.Contains(Formats(), format)
}

// New creates a logger at the given level ("debug", "info", "warn", "error").
// Format "json" uses zap's production encoder, anything else the
// human-friendly development console encoder.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == FormatJSON {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
