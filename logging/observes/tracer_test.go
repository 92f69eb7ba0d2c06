package observes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanRecordsLayerAndError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	_, span := StartSpan(context.Background(), LayerStrategy, "aggregation")
	EndSpan(span, errors.New("boom"))

	spans := rec.Ended()
	if assert.Len(t, spans, 1) {
		s := spans[0]
		assert.Equal(t, "aggregation", s.Name())
		assert.Equal(t, codes.Error, s.Status().Code)
		found := false
		for _, kv := range s.Attributes() {
			if kv.Key == "layer" && kv.Value.AsString() == "strategy" {
				found = true
			}
		}
		assert.True(t, found)
	}
}

func TestNewSentryWithoutDSN(t *testing.T) {
	assert.NoError(t, NewSentry(nil))
	assert.NoError(t, NewSentry(&SentryOptions{}))
}

func TestLayerString(t *testing.T) {
	assert.Equal(t, "facade", LayerFacade.String())
	assert.Equal(t, "unknown", Layer(99).String())
}
