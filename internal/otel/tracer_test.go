package otel

import (
	"context"
	"errors"
	"testing"
)

func TestNoopTracer_StartPollSpanDoesNotPanic(t *testing.T) {
	tr := NoopTracer()
	ctx, span := tr.StartPollSpan(context.Background(), PollSpanOptions{
		PollID:   "p1",
		DeviceID: "DID",
		Board:    "bd",
		State:    "S2",
	})
	defer span.End()

	if ctx == nil {
		t.Fatal("expected a non-nil context")
	}
	if tr.Enabled() {
		t.Fatal("expected a no-op Tracer to report disabled")
	}
}

func TestNewTracer_StdoutExporterStartsSpans(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.ExporterType = ExporterStdout
	cfg.SampleRate = 1.0

	tr, err := NewTracer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new tracer: %v", err)
	}
	defer tr.Shutdown(context.Background())

	if !tr.Enabled() {
		t.Fatal("expected the stdout-backed config to report enabled")
	}

	_, span := tr.StartPollSpan(context.Background(), PollSpanOptions{PollID: "p1", State: "S7"})
	RecordRetry(span, 1, "dns")
	RecordError(span, errors.New("boom"), "download", true)
	span.End()
}

func TestGetGlobalTracer_DefaultsToNoop(t *testing.T) {
	SetGlobalTracer(nil)
	tr := GetGlobalTracer()
	if tr.Enabled() {
		t.Fatal("expected the default global tracer to be disabled")
	}
}
