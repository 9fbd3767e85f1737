package otel

import (
	"context"
	"testing"
)

func TestNoopMetrics_RecordersDoNotPanic(t *testing.T) {
	m := NoopMetrics()
	ctx := context.Background()

	m.RecordPollDuration(ctx, "OK", 12.5)
	m.RecordTerminalStatus(ctx, "OK")
	m.RecordBytesWritten(ctx, 4096)
	m.RecordDNSRetry(ctx)

	if m.Enabled() {
		t.Fatal("expected a no-op Metrics instance to report disabled")
	}
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewMetrics_DisabledIsNoop(t *testing.T) {
	cfg := DefaultMetricsConfig()
	m, err := NewMetrics(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	if m.Enabled() {
		t.Fatal("expected disabled config to yield a disabled Metrics instance")
	}
}

func TestNewMetrics_StdoutExporterRegistersInstruments(t *testing.T) {
	cfg := DefaultMetricsConfig()
	cfg.Enabled = true
	cfg.ExporterType = ExporterStdout

	m, err := NewMetrics(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	defer m.Shutdown(context.Background())

	if !m.Enabled() {
		t.Fatal("expected the stdout-backed config to report enabled")
	}

	ctx := context.Background()
	m.RecordPollDuration(ctx, "UPDATE_INSTALLED", 1500)
	m.RecordTerminalStatus(ctx, "UPDATE_INSTALLED")
	m.RecordBytesWritten(ctx, 1<<20)
	m.RecordDNSRetry(ctx)
}

func TestGetGlobalMetrics_DefaultsToNoop(t *testing.T) {
	SetGlobalMetrics(nil)
	m := GetGlobalMetrics()
	if m.Enabled() {
		t.Fatal("expected the default global metrics instance to be disabled")
	}
}
