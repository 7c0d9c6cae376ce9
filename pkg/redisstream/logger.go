package redisstream

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// Logger adapts a zerolog logger to watermill. Watermill's info output is
// chatty, so it is logged at debug.
type Logger struct {
	l zerolog.Logger
}

var _ watermill.LoggerAdapter = Logger{}

func NewLogger(l zerolog.Logger) Logger {
	return Logger{l: l.With().Str("component", "watermill").Logger()}
}

func (w Logger) Error(msg string, err error, fields watermill.LogFields) {
	w.l.Error().Err(err).Fields(map[string]any(fields)).Msg(msg)
}

func (w Logger) Info(msg string, fields watermill.LogFields) {
	w.l.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (w Logger) Debug(msg string, fields watermill.LogFields) {
	w.l.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (w Logger) Trace(msg string, fields watermill.LogFields) {
	w.l.Trace().Fields(map[string]any(fields)).Msg(msg)
}

func (w Logger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return Logger{l: w.l.With().Fields(map[string]any(fields)).Logger()}
}
