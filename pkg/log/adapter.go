package log

import (
	"context"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/sirupsen/logrus"
)

// BadgerLogrusAdapter implements badger.Logger interface using logrus
type BadgerLogrusAdapter struct {
	*logrus.Entry
}

// NewBadgerLogrusAdapter creates a new adapter
func NewBadgerLogrusAdapter(entry *logrus.Entry) *BadgerLogrusAdapter {
	return &BadgerLogrusAdapter{entry}
}

// Errorf logs an error message
func (l *BadgerLogrusAdapter) Errorf(f string, v ...interface{}) { l.Entry.Errorf(f, v...) }

// Warningf logs a warning message
func (l *BadgerLogrusAdapter) Warningf(f string, v ...interface{}) { l.Entry.Warningf(f, v...) }

// Infof logs an info message; badger is chatty at info so it goes to debug
func (l *BadgerLogrusAdapter) Infof(f string, v ...interface{}) { l.Entry.Debugf(f, v...) }

// Debugf logs a debug message
func (l *BadgerLogrusAdapter) Debugf(f string, v ...interface{}) { l.Entry.Debugf(f, v...) }

// PgxLogrusAdapter implements tracelog.Logger so pgx query logs flow through logrus
type PgxLogrusAdapter struct {
	entry *logrus.Entry
}

// NewPgxLogrusAdapter creates a new adapter
func NewPgxLogrusAdapter(entry *logrus.Entry) *PgxLogrusAdapter {
	return &PgxLogrusAdapter{entry: entry}
}

// Log implements tracelog.Logger
func (l *PgxLogrusAdapter) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	entry := l.entry.WithContext(ctx).WithFields(logrus.Fields(data))
	switch level {
	case tracelog.LogLevelTrace:
		entry.Trace(msg)
	case tracelog.LogLevelDebug:
		entry.Debug(msg)
	case tracelog.LogLevelInfo:
		entry.Info(msg)
	case tracelog.LogLevelWarn:
		entry.Warn(msg)
	case tracelog.LogLevelError:
		entry.Error(msg)
	default:
		entry.WithField("pgx_level", level.String()).Error(msg)
	}
}

// PgxLogLevel maps the logrus level onto a pgx trace level. pgx logs every
// query and batch row at its info level, so that is only reached at logrus debug.
func PgxLogLevel(level logrus.Level) tracelog.LogLevel {
	switch {
	case level >= logrus.TraceLevel:
		return tracelog.LogLevelTrace
	case level >= logrus.DebugLevel:
		return tracelog.LogLevelInfo
	case level >= logrus.WarnLevel:
		return tracelog.LogLevelWarn
	default:
		return tracelog.LogLevelError
	}
}
