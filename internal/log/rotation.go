package log

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/servyre/inventario/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	fallbackMaxSizeMB = 10
	fallbackMaxFiles  = 5
)

// NewRotatingWriter opens the JSON log file named by cfg. Rotated files are
// stamped in local time. Config validation already rejects nonsensical
// sizes; the fallbacks cover a zero-valued LoggingConfig.
func NewRotatingWriter(cfg config.LoggingConfig) (*lumberjack.Logger, error) {
	if cfg.File == "" {
		return nil, fmt.Errorf("open log file: path must not be empty")
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = fallbackMaxSizeMB
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = fallbackMaxFiles
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, fmt.Errorf("open log file: create directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
		LocalTime:  true,
	}, nil
}
