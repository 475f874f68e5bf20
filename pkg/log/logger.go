package log

import (
	"io"
	"log/slog"
	"os"
)

// New constructs the process logger, writing JSON to stdout at info
// level with the app identity attached to every record
func New(app, env, version string) *slog.Logger {
	return NewWithLevel(app, env, version, slog.LevelInfo)
}

// NewWithLevel constructs the process logger at the provided level
func NewWithLevel(app, env, version string, lvl slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})

	return slog.New(handler).With(
		slog.String("app", app),
		slog.String("env", env),
		slog.String("version", version))
}

// NewText constructs a plain text logger for command line tools
func NewText(w io.Writer, lvl slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler)
}
