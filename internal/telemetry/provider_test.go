package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitProviderDisabled(t *testing.T) {
	config := DefaultConfig()

	ctx := context.Background()
	shutdown, err := InitProvider(ctx, config)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
}

func TestInitProviderEnabledWithoutEndpoint(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = true
	config.SampleRate = 0.5

	ctx := context.Background()
	shutdown, err := InitProvider(ctx, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(ctx) })

	_, ok := GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)
}

type flakyExporter struct {
	failures int
	calls    int
}

func (f *flakyExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("collector unavailable")
	}
	return nil
}

func (f *flakyExporter) Shutdown(context.Context) error { return nil }

func TestRetryingExporter(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		next := &flakyExporter{failures: 2}
		e := newRetryingExporter(next)
		e.initial = 0

		require.NoError(t, e.ExportSpans(context.Background(), nil))
		assert.Equal(t, 3, next.calls)
	})

	t.Run("gives up", func(t *testing.T) {
		next := &flakyExporter{failures: 10}
		e := newRetryingExporter(next)
		e.initial = 0

		err := e.ExportSpans(context.Background(), nil)
		require.Error(t, err)
		assert.Equal(t, e.attempts, next.calls)
	})
}
