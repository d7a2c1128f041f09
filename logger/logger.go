// Package logger configures the global zerolog logger used across envtoken.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TimeFormat of console log lines
const TimeFormat = "2006-01-02 15:04:05"

// Setup sets the global level and routes the global logger to a console writer on out.
// A nil out means stderr, which keeps stdout free for substituted output.
func Setup(debug bool, out io.Writer) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if out == nil {
		out = os.Stderr
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    out != os.Stderr && out != os.Stdout,
		TimeFormat: TimeFormat,
	})
}
