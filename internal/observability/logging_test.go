package observability

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Deuthe/test-odrl-integration/internal/util"
)

func TestDefaultLogConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultLogConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  LogConfig
		wantErr bool
	}{
		{name: "default config", config: DefaultLogConfig()},
		{name: "console format", config: LogConfig{Level: "debug", Format: "console", Output: "stdout"}},
		{name: "stderr output", config: LogConfig{Level: "warn", Format: "json", Output: "stderr"}},
		{name: "empty level defaults to info", config: LogConfig{}},
		{name: "invalid level", config: LogConfig{Level: "loud"}, wantErr: true},
		{name: "invalid format", config: LogConfig{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tt.config)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, logger)
			}
		})
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pap.log")

	logger, err := NewLogger(LogConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("written to file")
	assert.FileExists(t, path)
}

func TestLogger_SetLevel(t *testing.T) {
	t.Parallel()

	// Arrange
	logger, err := NewLogger(LogConfig{Level: "info", Output: "stderr"})
	require.NoError(t, err)
	child := logger.With(String("component", "test"))
	zl := logger.(*zapLogger)

	// Act
	require.NoError(t, logger.(LevelSetter).SetLevel("debug"))

	// Assert
	assert.True(t, zl.level.Enabled(zapcore.DebugLevel))
	assert.True(t, child.(*zapLogger).level.Enabled(zapcore.DebugLevel))
	assert.Error(t, logger.(LevelSetter).SetLevel("nope"))
}

func TestLogger_WithContext(t *testing.T) {
	t.Parallel()

	// Arrange
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	ctx := util.ContextWithRequestID(context.Background(), "req-1")
	ctx = trace.ContextWithSpanContext(ctx, sc)

	// Act
	logger.WithContext(ctx).Info("hello")

	// Assert
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
}

func TestLogger_WithContext_Empty(t *testing.T) {
	t.Parallel()

	logger := NopLogger()

	assert.Same(t, logger, logger.WithContext(context.Background()))
}

func TestGlobalLogger(t *testing.T) {
	// Not parallel: mutates the global logger.
	SetGlobalLogger(nil)
	assert.NotNil(t, L())

	custom := NopLogger()
	SetGlobalLogger(custom)
	assert.Same(t, custom, L())

	SetGlobalLogger(nil)
}
