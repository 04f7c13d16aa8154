// Package logging provides the single zerolog instance every package in
// this module should log through instead of fmt.Println or the stdlib
// log package.
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. Components add context fields with
// Logger.With() rather than importing zerolog directly.
var Logger zerolog.Logger

func init() {
	Logger = New(os.Stderr)
}

// New builds a logger writing to w. When w is a terminal it uses zerolog's
// human-readable ConsoleWriter; otherwise it emits one JSON object per line,
// which is what a supervisor (systemd, docker) expects to scrape.
func New(w *os.File) zerolog.Logger {
	var output zerolog.LevelWriter
	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		output = zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"})
	} else {
		output = zerolog.MultiLevelWriter(w)
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// Component returns a child logger tagged with a "component" field, the
// pattern every listener/worker/connection type in this module uses to make
// its log lines attributable at a glance.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
