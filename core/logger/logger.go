package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	envLogLevel  = "PBREFLECT_LOG_LEVEL"
	envLogFormat = "PBREFLECT_LOG_FORMAT"

	defaultLevel = logrus.WarnLevel
)

var (
	lg     *logrus.Logger
	lgOnce sync.Once
)

// Logger returns the process logger. The level comes from PBREFLECT_LOG_LEVEL
// (warning by default) and PBREFLECT_LOG_FORMAT=json switches to JSON output.
func Logger() *logrus.Logger {
	lgOnce.Do(func() {
		lg = New(os.Getenv(envLogLevel), os.Getenv(envLogFormat))
	})
	return lg
}

// New builds a logger writing to stderr. An unknown level falls back to warning.
func New(levelStr, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000 MST",
		})
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = defaultLevel
	}
	l.SetLevel(level)

	return l
}

// SetLevel changes the level of the process logger. Unknown levels are ignored.
func SetLevel(levelStr string) {
	if level, err := logrus.ParseLevel(levelStr); err == nil {
		Logger().SetLevel(level)
	}
}
