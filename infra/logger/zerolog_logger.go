package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

var (
	configuredLevel  string
	configuredPretty bool
)

// Configure sets the process-wide log level and output format for loggers
// created afterwards. It takes precedence over the APP_ENV and LOG_LEVEL
// environment variables.
func Configure(level string, pretty bool) {
	configuredLevel = level
	configuredPretty = pretty
}

// NewZerologLogger creates a ZerologLogger. The output format follows
// Configure, falling back to the APP_ENV environment variable ("dev" selects
// console output). All logs include the provided component field. LOG_LEVEL
// lowers or raises the global level (debug, info, warn, error).
func NewZerologLogger(component string) Logger {
	pretty := configuredPretty || strings.ToLower(os.Getenv("APP_ENV")) == "dev"
	var z zerolog.Logger
	if pretty {
		writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		z = zerolog.New(writer).With().Timestamp().Str("component", component).Logger()
	} else {
		z = zerolog.New(os.Stdout).With().Timestamp().Str("component", component).Logger()
	}
	level := configuredLevel
	if level == "" {
		level = strings.ToLower(os.Getenv("LOG_LEVEL"))
	}
	if lvl, err := zerolog.ParseLevel(level); err == nil && lvl != zerolog.NoLevel {
		z = z.Level(lvl)
	}
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
