package commands

import (
	"github.com/rs/zerolog"

	subapp "github.com/mitchellsimoens/SubAppDemo"
)

// zerologLogger adapts a zerolog.Logger to subapp.Logger. Key/value pairs
// become structured fields.
type zerologLogger struct {
	l zerolog.Logger
}

var _ subapp.Logger = zerologLogger{}

func newLogger(l zerolog.Logger) zerologLogger {
	return zerologLogger{l: l}
}

func (z zerologLogger) Info(msg string, args ...any) {
	z.l.Info().Fields(args).Msg(msg)
}

func (z zerologLogger) Error(msg string, args ...any) {
	z.l.Error().Fields(args).Msg(msg)
}

func (z zerologLogger) Warn(msg string, args ...any) {
	z.l.Warn().Fields(args).Msg(msg)
}

func (z zerologLogger) Debug(msg string, args ...any) {
	z.l.Debug().Fields(args).Msg(msg)
}
