package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/servyre/inventario/internal/config"
)

// New builds the process logger. Records go to stderr as text unless a log
// file is configured, in which case they are written as JSON to a rotating
// file. Both paths pass through the redacting handler.
func New(cfg config.LoggingConfig, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.File == "" {
		handler := slog.NewTextHandler(stderr, opts)
		return slog.New(NewRedactingHandler(handler)), io.NopCloser(nil), nil
	}

	writer, err := NewRotatingWriter(cfg)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(writer, opts)
	return slog.New(NewRedactingHandler(handler)), writer, nil
}

func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}
