package logger

import (
	"io"
	"log/slog"
)

// New returns a structured text logger writing to w. Debug mode lowers the
// level so per-chart derivations are logged.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
