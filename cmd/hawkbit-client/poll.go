package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anthropics/hawkbit-go-client/internal/session"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run a single poll cycle and exit",
	RunE:  runPoll,
}

func runPoll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	orch, shutdown, err := buildOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	status := orch.Poll(ctx)
	fmt.Println(status)

	if isErrorStatus(status) {
		return fmt.Errorf("poll finished with status %s", status)
	}
	return nil
}

func isErrorStatus(status session.Status) bool {
	switch status {
	case session.StatusDownloadError, session.StatusNetworkingError, session.StatusMetadataError, session.StatusUnconfirmedImage:
		return true
	default:
		return false
	}
}
