package client

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the client logger. With debug the level is Debug,
// otherwise Info. Output is JSON lines with Unix timestamps.
func NewLogger(w io.Writer, debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// NewConsoleLogger builds a human-readable logger on stderr for headless tools
func NewConsoleLogger(debug bool) zerolog.Logger {
	logger := NewLogger(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}, debug)
	return logger
}

// OpenLogFile opens (appending) the debug log at path, creating its directory
func OpenLogFile(path string) (*os.File, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
