package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus so services share one configured instance
type Logger struct {
	*logrus.Logger
}

// New creates the application logger. Debug level in dev, info otherwise.
func New(mode string) *Logger {
	logger := logrus.New()

	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   mode != "dev",
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if mode == "dev" {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Logger{logger}
}

// Discard returns a logger that writes nowhere (tests)
func Discard() *Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Logger{logger}
}

// Integrity logs a data-integrity warning with the integrity flag set
func (l *Logger) Integrity(fields logrus.Fields, msg string) {
	l.WithFields(fields).WithField("integrity", true).Warn(msg)
}
