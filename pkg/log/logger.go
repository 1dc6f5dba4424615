package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger: text output with millisecond timestamps.
// An unknown level falls back to info and is reported on the returned logger.
func NewLogger(out io.Writer, levelName string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	logger.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using default 'info'. Error: %v", levelName, err)
		return logger
	}
	logger.SetLevel(level)
	return logger
}
