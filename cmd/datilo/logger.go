package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/ayusman/datilo/internal/config"
)

// newLogger builds the process logger. In auto mode a terminal gets the
// text handler and anything else (journald, files, pipes) gets JSON.
func newLogger(w io.Writer, level config.LogLevel, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level.Slog()}

	useJSON := format == config.LogFormatJSON
	if format == config.LogFormatAuto || format == "" {
		useJSON = !isTerminal(w)
	}

	if useJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
