package tracing

import (
	"context"
	"testing"
)

func TestInitTracing_Disabled(t *testing.T) {
	tr, err := InitTracing(Config{Enabled: false})
	if err != nil {
		t.Fatalf("Failed to init disabled tracing: %v", err)
	}
	if GetTracer() != tr {
		t.Error("Expected global tracer to be the initialized one")
	}

	ctx, span := tr.StartSpan(context.Background(), "test")
	defer span.End()
	if ctx == nil {
		t.Error("Expected a context")
	}
	if span.SpanContext().IsValid() {
		t.Error("No-op spans should not carry a valid span context")
	}

	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown of no-op provider failed: %v", err)
	}
}
