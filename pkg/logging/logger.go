package logging

import (
	"io"
	"log/slog"
)

// NewHandler returns the text handler used by the CLI. Debug enables
// debug-level records; otherwise only warnings and errors are kept.
func NewHandler(w io.Writer, debug bool) slog.Handler {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}
