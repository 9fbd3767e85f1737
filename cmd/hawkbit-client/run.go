package main

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var runInterval time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll repeatedly until interrupted",
	RunE:  runDaemon,
}

func init() {
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "override the configured polling interval until the server supplies a polling sleep (0 = use config)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch, shutdown, err := buildOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	if runInterval > 0 {
		orch.EffectivePollInterval = runInterval
	}

	for {
		status := orch.Poll(ctx)
		fmt.Println(status)

		wait := orch.NextPollInterval()
		log.Printf("next poll in %s", wait)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}
