package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false, ServerAddress: "http://localhost:4040"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop(), "stop is repeatable")
}

func TestNewProfiler_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProfilerConfig
		wantErr string
	}{
		{
			name:    "missing server address",
			cfg:     ProfilerConfig{Enabled: true, ApplicationName: "inventory-reconciler"},
			wantErr: "server address is required",
		},
		{
			name:    "missing application name",
			cfg:     ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"},
			wantErr: "application name is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProfiler(tt.cfg, zaptest.NewLogger(t))
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProfiler_ProfileTypes(t *testing.T) {
	base := (&Profiler{}).profileTypes()
	assert.Len(t, base, 6)

	all := (&Profiler{config: ProfilerConfig{ProfileMutex: true, ProfileBlock: true}}).profileTypes()
	assert.Len(t, all, 10)
}

func TestSanitizeLabels(t *testing.T) {
	long := strings.Repeat("x", maxLabelValueLength+10)

	pairs := sanitizeLabels(map[string]string{
		ProfilingLabelOperation: "sync",
		ProfilingLabelDryRun:    "false",
		"session_id":            "sess-1",
		"sku":                   "SHOE-01",
		"empty":                 "",
		ProfilingLabelMethod:    long,
	})

	assert.Equal(t, []string{
		ProfilingLabelDryRun, "false",
		ProfilingLabelMethod, long[:maxLabelValueLength],
		ProfilingLabelOperation, "sync",
	}, pairs)
	assert.Empty(t, sanitizeLabels(nil))
}

func TestWithProfilingLabels(t *testing.T) {
	t.Run("labels are visible inside fn", func(t *testing.T) {
		var got string
		WithProfilingLabels(context.Background(), map[string]string{ProfilingLabelOperation: "sync"}, func(ctx context.Context) {
			got, _ = pprof.Label(ctx, ProfilingLabelOperation)
		})
		assert.Equal(t, "sync", got)
	})

	t.Run("no usable labels still runs fn", func(t *testing.T) {
		called := false
		WithProfilingLabels(context.Background(), map[string]string{"sku": "A"}, func(context.Context) {
			called = true
		})
		assert.True(t, called)
	})
}
