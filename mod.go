// Package coffeetrace holds the process-wide instances shared by the packages
// of the module, namely the logger and the list of Prometheus collectors.
package coffeetrace

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var logout = zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(zerolog.InfoLevel)

// PromCollectors exposes the collectors of the packages so that an application
// can register them to its own registry.
var PromCollectors []prometheus.Collector

// SetLogLevel parses the level and applies it to the global logger. An empty
// level leaves the logger untouched.
func SetLogLevel(level string) error {
	if level == "" {
		return nil
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	Logger = Logger.Level(lvl)

	return nil
}
