package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"omnigest/internal/compliance"
	"omnigest/internal/purge/registry"
	auditmemory "omnigest/pkg/platform/audit/store/memory"
	"omnigest/pkg/requestcontext"
)

func TestProcessEmitsStageSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	pipe := New(Config{
		Registry: registry.NewInMemoryRegistry(),
		Audit:    auditmemory.NewInMemoryStore(),
		Policy:   compliance.DefaultPolicy(),
	})
	ctx := requestcontext.WithTime(context.Background(),
		time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	row := cleanRow()
	row["Consent_Status"] = "REVOKED"
	_, err := pipe.Process(ctx, row)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
	}
	for _, want := range []string{"pipeline.Process", "recovery.Rescue", "purge.Apply"} {
		require.True(t, names[want], "missing span %s", want)
	}
}
