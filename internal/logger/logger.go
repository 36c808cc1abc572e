// Package logger builds the process-wide zerolog logger from the log section
// of the configuration.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// New returns a logger writing to w. Text format uses zerolog's console
// writer; json writes one object per line. Debug and trace levels also
// record the caller and pid.
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("logger: level %q: %w", level, err)
		}
	}

	var out io.Writer
	switch format {
	case FormatJSON:
		out = w
	case FormatText, "":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return zerolog.Logger{}, fmt.Errorf("logger: unknown format %q", format)
	}

	ctx := zerolog.New(out).Level(lvl).With().Timestamp()
	if lvl <= zerolog.DebugLevel {
		ctx = ctx.Caller().Int("pid", os.Getpid())
	}
	return ctx.Logger(), nil
}

// Setup installs a stderr logger as both the global logger and the default
// context logger, so log.Ctx on a bare context still writes somewhere useful.
func Setup(level, format string) error {
	l, err := New(os.Stderr, level, format)
	if err != nil {
		return err
	}
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return nil
}
