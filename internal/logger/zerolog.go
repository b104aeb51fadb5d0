package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

type ZerologAdapter struct {
	logger zerolog.Logger
}

func NewZerolog(writer io.Writer, level zerolog.Level) *ZerologAdapter {
	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &ZerologAdapter{logger: logger}
}

// NewConsoleLogger writes human readable lines to stdout.
func NewConsoleLogger(level zerolog.Level) *ZerologAdapter {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}
	return NewZerolog(consoleWriter, level)
}

// NewJSONLogger writes one JSON object per line, for journald and log shippers.
func NewJSONLogger(writer io.Writer, level zerolog.Level) *ZerologAdapter {
	return NewZerolog(writer, level)
}

func (z *ZerologAdapter) Info(component, message string, fields map[string]interface{}) {
	event := z.logger.Info().Str("component", component)
	if fields != nil {
		event = event.Fields(fields)
	}
	event.Msg(message)
}

func (z *ZerologAdapter) Error(component string, err error, fields map[string]interface{}) {
	event := z.logger.Error().Str("component", component).Err(err)
	if fields != nil {
		event = event.Fields(fields)
	}
	event.Msg("operation failed")
}

func (z *ZerologAdapter) Warning(component, message string, fields map[string]interface{}) {
	event := z.logger.Warn().Str("component", component)
	if fields != nil {
		event = event.Fields(fields)
	}
	event.Msg(message)
}

func (z *ZerologAdapter) Debug(component, message string, fields map[string]interface{}) {
	event := z.logger.Debug().Str("component", component)
	if fields != nil {
		event = event.Fields(fields)
	}
	event.Msg(message)
}
