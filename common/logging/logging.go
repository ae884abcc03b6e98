package logging

import (
	"context"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

type loggerKeyType int

const LoggerKey loggerKeyType = iota

type Config struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// Configure applies config to the standard logrus logger and returns the
// service's root entry.
func Configure(config Config, service string) *log.Entry {
	log.SetOutput(os.Stdout)
	if strings.EqualFold(config.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(config.Level)
	if err != nil {
		log.WithError(err).Warnf("unknown log level %q, using info", config.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	return log.WithField("service", service)
}

// WithLogger returns a new context with the provided logger. Use in
// combination with logger.WithField(s) for great effect.
func WithLogger(ctx context.Context, logger *log.Entry) context.Context {
	l := logger.WithContext(ctx)
	return context.WithValue(ctx, LoggerKey, l)
}

// FromContext retrieves the current logger from the context. If no logger is
// available, the default logger is returned.
func FromContext(ctx context.Context) *log.Entry {
	if ctx != nil {
		if logger, ok := ctx.Value(LoggerKey).(*log.Entry); ok {
			return logger
		}
	}
	return log.NewEntry(log.StandardLogger())
}
