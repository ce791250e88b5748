// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"

	"github.com/nirvaan-oms/api/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets up log.Logger for env: JSON at info level in production,
// console output at debug level otherwise.
func Init(env config.Environment) {
	InitWriter(env, os.Stderr)
}

// InitWriter is Init with an explicit destination.
func InitWriter(env config.Environment, w io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env.IsProduction() {
		log.Logger = zerolog.New(w).With().Timestamp().Logger().Level(zerolog.InfoLevel)
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).
		With().Timestamp().Caller().Logger().
		Level(zerolog.DebugLevel)
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}

// With returns a child logger carrying component=name.
func With(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
