package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewTrivialLogger builds the host-console style logger used for operator
// diagnostics such as "Creating new Coords file". Lines are plain text
// without color so the file stays readable in any viewer.
func NewTrivialLogger(out io.Writer) zerolog.Logger {
	if out == nil {
		return zerolog.Nop()
	}
	w := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.DateTime,
		NoColor:    true,
		PartsOrder: []string{zerolog.TimestampFieldName, zerolog.MessageFieldName},
	}
	return zerolog.New(w).With().Timestamp().Logger()
}
