package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anthropics/hawkbit-go-client/internal/config"
	"github.com/anthropics/hawkbit-go-client/internal/otel"
	"github.com/anthropics/hawkbit-go-client/internal/session"
	"github.com/anthropics/hawkbit-go-client/internal/simdevice"
)

var (
	configPath string
	stateDir   string
)

var rootCmd = &cobra.Command{
	Use:   "hawkbit-client",
	Short: "Poll a hawkBit update server and install deployments",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to hawkbit-client.yaml (defaults to ./hawkbit-client.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "./data", "directory for the simulated bootloader's spare slot and device id")

	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(runCmd)
}

// buildOrchestrator loads configuration, bootstraps the simulated device,
// and wires an Orchestrator ready to poll. It returns the Orchestrator
// along with a shutdown func that flushes telemetry and closes the action
// log; callers must invoke it once done.
func buildOrchestrator(ctx context.Context) (*session.Orchestrator, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	bl, err := simdevice.NewFileBootloader(stateDir+"/bootloader", cfg.SpareSlotSize)
	if err != nil {
		return nil, nil, fmt.Errorf("init simulated bootloader: %w", err)
	}
	id, err := simdevice.NewFileIdentity(stateDir+"/device-id", "")
	if err != nil {
		return nil, nil, fmt.Errorf("init simulated identity: %w", err)
	}

	log, err := session.Bootstrap(bl, cfg.ActionLogDir)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: %w", err)
	}

	metrics, tracer, closeTelemetry, err := buildTelemetry(ctx, cfg)
	if err != nil {
		log.Close()
		return nil, nil, err
	}

	orch := session.NewOrchestrator(cfg, bl, id, log, metrics, tracer)

	shutdown := func() {
		closeTelemetry()
		log.Close()
	}
	return orch, shutdown, nil
}

func buildTelemetry(ctx context.Context, cfg *config.Config) (*otel.Metrics, *otel.Tracer, func(), error) {
	if !cfg.Telemetry.Enabled {
		return otel.NoopMetrics(), otel.NoopTracer(), func() {}, nil
	}

	metricsCfg := otel.DefaultMetricsConfig()
	metricsCfg.Enabled = true
	metricsCfg.ExporterType = otel.ExporterType(cfg.Telemetry.ExporterType)
	metricsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	metrics, err := otel.NewMetrics(ctx, metricsCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init metrics: %w", err)
	}

	tracerCfg := otel.DefaultConfig()
	tracerCfg.Enabled = true
	tracerCfg.ExporterType = otel.ExporterType(cfg.Telemetry.ExporterType)
	tracerCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	tracer, err := otel.NewTracer(ctx, tracerCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init tracer: %w", err)
	}

	shutdown := func() {
		_ = metrics.Shutdown(ctx)
		_ = tracer.Shutdown(ctx)
	}
	return metrics, tracer, shutdown, nil
}
