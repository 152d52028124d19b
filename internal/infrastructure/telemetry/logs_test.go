package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingLogExporter struct {
	mu     sync.Mutex
	bodies []string
}

func (e *recordingLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.bodies = append(e.bodies, r.Body().AsString())
	}
	return nil
}

func (e *recordingLogExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingLogExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingLogExporter) Bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...)
}

func newRecordingLoggerProvider(t *testing.T) (*LoggerProvider, *recordingLogExporter) {
	t.Helper()
	exp := &recordingLogExporter{}
	lp, err := newLoggerProvider(LogsConfig{Enabled: true, ServiceName: "inventory-reconciler"}, sdklog.NewSimpleProcessor(exp), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })
	return lp, exp
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false, ServiceName: "svc"}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.ForceFlush(ctx))
	assert.NoError(t, lp.Shutdown(ctx))
	assert.NoError(t, lp.Shutdown(ctx), "shutdown is repeatable")

	base := zap.NewNop()
	assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
	assert.False(t, lp.NewZapCore(zapcore.DebugLevel).Enabled(zapcore.ErrorLevel))
}

func TestNewLoggerProvider_EnabledWithoutCollector(t *testing.T) {
	ctx := context.Background()

	// the gRPC exporter dials lazily
	lp, err := NewLoggerProvider(ctx, LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:19999",
		ServiceName:       "svc",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, lp.IsEnabled())
	_ = lp.Shutdown(ctx)
}

func TestLoggerProvider_NewZapCore_LevelFilter(t *testing.T) {
	lp, _ := newRecordingLoggerProvider(t)

	core := lp.NewZapCore(zapcore.WarnLevel)
	_, filtered := core.(*levelFilterCore)
	require.True(t, filtered)

	assert.False(t, core.Enabled(zapcore.DebugLevel))
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))

	withFields := core.With([]zapcore.Field{zap.String("session_id", "s-1")})
	assert.False(t, withFields.Enabled(zapcore.InfoLevel), "With keeps the minimum level")
}

func TestLoggerProvider_Bridge(t *testing.T) {
	lp, exp := newRecordingLoggerProvider(t)
	obsCore, recorded := observer.New(zapcore.DebugLevel)

	log := lp.Bridge(zap.New(obsCore), zapcore.InfoLevel)
	log.Debug("page fetched", zap.Int("page", 1))
	log.Info("Batch reconciliation finished", zap.String("session_id", "s-1"))
	log.Error("Bulk scan aborted")

	require.NoError(t, lp.ForceFlush(context.Background()))

	assert.Equal(t, 3, recorded.Len(), "the original output keeps every entry")
	assert.Equal(t, []string{"Batch reconciliation finished", "Bulk scan aborted"}, exp.Bodies())
}
