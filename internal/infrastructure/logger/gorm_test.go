package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func selectProducts() (string, int64) {
	return "SELECT * FROM products WHERE UPPER(TRIM(sku)) = 'ABC-1'", 1
}

func TestNewGormLogger(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	assert.Equal(t, 500*time.Millisecond, gormLog.slowThreshold)
	assert.False(t, gormLog.ignoreRecordNotFoundError)

	t.Run("nil zap logger", func(t *testing.T) {
		assert.NotPanics(t, func() {
			NewGormLogger(nil, gormlogger.Info).Info(context.Background(), "ok")
		})
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info)
	newLogger := gormLog.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	newGormLog, ok := newLogger.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, newGormLog.logLevel)
}

func TestGormLogger_Messages(t *testing.T) {
	t.Run("info is formatted", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Info)
		gormLog.Info(context.Background(), "migrated %s", "products")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "migrated products", logs[0].Message)
	})

	t.Run("info is suppressed when silent", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Silent)
		gormLog.Info(context.Background(), "hidden")
		assert.Empty(t, recorded.All())
	})

	t.Run("warn level", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Warn)
		gormLog.Warn(context.Background(), "warning %d", 42)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("error level", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Error)
		gormLog.Error(context.Background(), "broken")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		opts    []GormLoggerOption
		begin   time.Time
		err     error
		wantMsg string
	}{
		{"error", gormlogger.Error, nil, time.Now(), errors.New("connection reset"), "SQL error"},
		{"record not found ignored", gormlogger.Error, []GormLoggerOption{WithIgnoreRecordNotFoundError(true)}, time.Now(), gormlogger.ErrRecordNotFound, ""},
		{"record not found reported", gormlogger.Error, []GormLoggerOption{WithIgnoreRecordNotFoundError(false)}, time.Now(), gormlogger.ErrRecordNotFound, "SQL error"},
		{"slow query", gormlogger.Warn, []GormLoggerOption{WithSlowThreshold(time.Nanosecond)}, time.Now().Add(-time.Second), nil, "SLOW SQL"},
		{"normal query", gormlogger.Info, nil, time.Now(), nil, "SQL query"},
		{"silent", gormlogger.Silent, nil, time.Now(), errors.New("ignored"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormLog, recorded := newObservedGormLogger(tt.level, tt.opts...)
			gormLog.Trace(context.Background(), tt.begin, selectProducts, tt.err)

			logs := recorded.All()
			if tt.wantMsg == "" {
				assert.Empty(t, logs)
				return
			}
			require.Len(t, logs, 1)
			assert.Contains(t, logs[0].Message, tt.wantMsg)
		})
	}
}

func TestGormLogger_Trace_CorrelationFields(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Info)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, SessionIDKey, "sess-1")
	ctx = context.WithValue(ctx, JobIDKey, "job-1")
	ctx, _ = WithSKU(ctx, nil, "ABC-1")

	gormLog.Trace(ctx, time.Now(), selectProducts, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "sess-1", fields["session_id"])
	assert.Equal(t, "job-1", fields["job_id"])
	assert.Equal(t, "ABC-1", fields["sku"])
	assert.Equal(t, "select", fields["statement"])
	assert.Equal(t, int64(1), fields["rows"])
}

func TestGormLogger_Trace_ErrorKeepsSession(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Error)

	ctx, _ := WithSessionID(context.Background(), nil, "sess-9")
	update := func() (string, int64) { return "UPDATE products SET stock_quantity = 4", 0 }
	gormLog.Trace(ctx, time.Now(), update, errors.New("deadlock detected"))

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "sess-9", fields["session_id"])
	assert.Equal(t, "update", fields["statement"])
	assert.Equal(t, "deadlock detected", fields["error"])
}

func TestGormLogger_Messages_CorrelationFields(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Warn)

	ctx, _ := WithSessionID(context.Background(), nil, "sess-2")
	ctx, _ = WithSKU(ctx, nil, "SHOE-7")
	gormLog.Warn(ctx, "prepared statement cache full")
	gormLog.Warn(context.Background(), "no correlation")

	logs := recorded.All()
	require.Len(t, logs, 2)
	fields := logs[0].ContextMap()
	assert.Equal(t, "sess-2", fields["session_id"])
	assert.Equal(t, "SHOE-7", fields["sku"])
	assert.Empty(t, logs[1].ContextMap())
}

func TestStatementKind(t *testing.T) {
	assert.Equal(t, "select", statementKind("SELECT * FROM products"))
	assert.Equal(t, "insert", statementKind("  INSERT INTO sync_ledger (id) VALUES (1)"))
	assert.Equal(t, "update", statementKind("UPDATE\nproducts"))
	assert.Equal(t, "", statementKind(""))
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"WARN", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}

func TestGormLoggerImplementsInterface(t *testing.T) {
	var _ gormlogger.Interface = NewGormLogger(zap.NewNop(), gormlogger.Info)
}
