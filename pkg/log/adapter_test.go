package log

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiscardEntry() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func TestNewBadgerLogrusAdapter(t *testing.T) {
	adapter := NewBadgerLogrusAdapter(newDiscardEntry())
	assert.NotNil(t, adapter)
}

func TestBadgerLogrusAdapter_Methods(t *testing.T) {
	adapter := NewBadgerLogrusAdapter(newDiscardEntry())

	assert.NotPanics(t, func() { adapter.Errorf("error %s", "test") })
	assert.NotPanics(t, func() { adapter.Warningf("warning %d", 42) })
	assert.NotPanics(t, func() { adapter.Infof("info %v", true) })
	assert.NotPanics(t, func() { adapter.Debugf("debug") })
}

func TestPgxLogrusAdapter_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	adapter := NewPgxLogrusAdapter(logrus.NewEntry(logger))

	adapter.Log(context.Background(), tracelog.LogLevelWarn, "slow query", map[string]any{"sql": "SELECT 1"})

	out := buf.String()
	assert.Contains(t, out, "slow query")
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "SELECT 1")
}

func TestPgxLogLevel(t *testing.T) {
	assert.Equal(t, tracelog.LogLevelTrace, PgxLogLevel(logrus.TraceLevel))
	assert.Equal(t, tracelog.LogLevelInfo, PgxLogLevel(logrus.DebugLevel))
	assert.Equal(t, tracelog.LogLevelWarn, PgxLogLevel(logrus.InfoLevel))
	assert.Equal(t, tracelog.LogLevelWarn, PgxLogLevel(logrus.WarnLevel))
	assert.Equal(t, tracelog.LogLevelError, PgxLogLevel(logrus.ErrorLevel))
	assert.Equal(t, tracelog.LogLevelError, PgxLogLevel(logrus.FatalLevel))
}

// traceBatchRows feeds n successful batch rows through a TraceLog configured
// the way the postgres sink configures it and returns the log output.
func traceBatchRows(t *testing.T, levelName string, n int) string {
	t.Helper()
	var buf bytes.Buffer
	logger := NewLogger(&buf, levelName)
	buf.Reset()

	tracer := &tracelog.TraceLog{
		Logger:   NewPgxLogrusAdapter(logger.WithField("component", "pgx")),
		LogLevel: PgxLogLevel(logger.GetLevel()),
	}
	conn := &pgx.Conn{}
	for i := 0; i < n; i++ {
		tracer.TraceBatchQuery(context.Background(), conn, pgx.TraceBatchQueryData{
			SQL:  "INSERT INTO post (title) VALUES ($1)",
			Args: []any{"Продам 1500грн"},
		})
	}
	return buf.String()
}

func TestPgxTracing_BatchRowsNotLoggedAtInfo(t *testing.T) {
	out := traceBatchRows(t, "info", 3)
	assert.NotContains(t, out, "BatchQuery")
	assert.NotContains(t, out, "Продам")
}

func TestPgxTracing_BatchRowsLoggedAtDebug(t *testing.T) {
	out := traceBatchRows(t, "debug", 2)
	require.Contains(t, out, "BatchQuery")
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("msg=BatchQuery")))
}

func TestPgxTracing_BatchErrorsLoggedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")
	buf.Reset()
	tracer := &tracelog.TraceLog{
		Logger:   NewPgxLogrusAdapter(logger.WithField("component", "pgx")),
		LogLevel: PgxLogLevel(logger.GetLevel()),
	}
	tracer.TraceBatchQuery(context.Background(), &pgx.Conn{}, pgx.TraceBatchQueryData{
		SQL: "INSERT INTO post (title) VALUES ($1)",
		Err: assert.AnError,
	})
	assert.Contains(t, buf.String(), "level=error")
	assert.Contains(t, buf.String(), "BatchQuery")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	buf.Reset()
	logger = NewLogger(&buf, "loud")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "Invalid log level 'loud'")
}
