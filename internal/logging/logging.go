// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// TimeLayout is the timestamp format of every log line: day.month@time.
const TimeLayout = "02.01@15:04:05"

// New returns a text logger writing to w. Verbose enables debug records.
func New(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, options(verbose)))
}

// NewStderr returns a text logger when stderr is a terminal and a JSON logger
// when it is piped or redirected.
func NewStderr(verbose bool) *slog.Logger {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return New(os.Stderr, verbose)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options(verbose)))
}

func options(verbose bool) *slog.HandlerOptions {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: formatTime,
	}
}

func formatTime(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 && a.Value.Kind() == slog.KindTime {
		return slog.String(slog.TimeKey, a.Value.Time().Format(TimeLayout))
	}
	return a
}
