package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/anthropics/hawkbit-go-client/internal/actionlog"
	"github.com/anthropics/hawkbit-go-client/internal/artifact"
	"github.com/anthropics/hawkbit-go-client/internal/bootloader"
	"github.com/anthropics/hawkbit-go-client/internal/config"
	"github.com/anthropics/hawkbit-go-client/internal/exchange"
	"github.com/anthropics/hawkbit-go-client/internal/identity"
	"github.com/anthropics/hawkbit-go-client/internal/otel"
	"github.com/anthropics/hawkbit-go-client/internal/protocol"
)

// hardwareRevision is the fixed value reported in config-data feedback
// (spec.md §4.5 S4); the original source hardcodes "3" as the board's
// hardware revision tag.
const hardwareRevision = "3"

// Orchestrator runs one poll cycle through states S0..S8 (spec.md §4.5).
// It is constructed fresh per poll, or reused but never called
// concurrently — the outer scheduler's contract that one poll completes
// before the next is armed (spec.md §5).
type Orchestrator struct {
	Config     *config.Config
	Bootloader bootloader.Bootloader
	Identity   identity.Provider
	ActionLog  *actionlog.Log
	Metrics    *otel.Metrics
	Tracer     *otel.Tracer

	// EffectivePollInterval is the scheduling interval in force for the
	// next poll: updated, with second-level precision, whenever a poll
	// observes a valid "HH:MM:SS" polling-sleep string (spec.md §4.5 S2).
	// Zero means "no override yet; use Config.PollInterval()". This is kept
	// separate from Config.PollIntervalMinutes (minute granularity, a
	// build-time default) so a server-provided sleep isn't rounded away.
	EffectivePollInterval time.Duration

	// newClient is overridable in tests to avoid real network dials.
	newClient func(cfg *config.Config, metrics *otel.Metrics) (pollClient, error)
}

// NextPollInterval returns the interval the outer scheduler should wait
// before the next poll: the last server-provided sleep if one was observed,
// otherwise the configured default.
func (o *Orchestrator) NextPollInterval() time.Duration {
	if o.EffectivePollInterval > 0 {
		return o.EffectivePollInterval
	}
	return o.Config.PollInterval()
}

// pollClient is the subset of *exchange.Client the orchestrator drives;
// narrowed to an interface so tests can substitute a fake transport without
// spinning up an httptest.Server for every scenario.
type pollClient interface {
	Probe(ctx context.Context, path string) (*exchange.Result, error)
	ProbeDeployment(ctx context.Context, path string) (*exchange.Result, error)
	Download(ctx context.Context, path string, sink *artifact.Sink) (*exchange.Result, error)
	PutConfigData(ctx context.Context, path string, body []byte) (*exchange.Result, error)
	PostClose(ctx context.Context, path string, body []byte) (*exchange.Result, error)
	PostReport(ctx context.Context, path string, body []byte) (*exchange.Result, error)
	Close()
}

// NewOrchestrator constructs an Orchestrator wired to real collaborators.
func NewOrchestrator(cfg *config.Config, bl bootloader.Bootloader, id identity.Provider, log *actionlog.Log, metrics *otel.Metrics, tracer *otel.Tracer) *Orchestrator {
	return &Orchestrator{
		Config:     cfg,
		Bootloader: bl,
		Identity:   id,
		ActionLog:  log,
		Metrics:    metrics,
		Tracer:     tracer,
		newClient: func(cfg *config.Config, metrics *otel.Metrics) (pollClient, error) {
			return exchange.NewClient(cfg, metrics)
		},
	}
}

// Poll runs one pass through S0..S8, returning the terminal status. Every
// path — success or error — flows through a single deferred cleanup that
// closes the transport and records the poll's duration, matching spec.md's
// "all terminal paths pass through a single cleanup" requirement.
func (o *Orchestrator) Poll(ctx context.Context) Status {
	pollID := uuid.NewString()
	start := time.Now()

	ctx, endSpan := o.startSpan(ctx, pollID, "")
	defer endSpan()

	status := StatusOK
	var client pollClient

	defer func() {
		if client != nil {
			client.Close()
		}
		o.recordPollOutcome(ctx, status, start)
	}()

	// S0: Preflight.
	confirmed, err := o.Bootloader.IsConfirmed()
	if err != nil {
		log.Printf("[session %s] preflight: is-confirmed query failed: %v", pollID, err)
		status = StatusUnconfirmedImage
		return status
	}
	if !confirmed {
		status = StatusUnconfirmedImage
		return status
	}

	firmwareVersion, err := o.Identity.FirmwareVersion()
	if err != nil {
		log.Printf("[session %s] preflight: firmware version unavailable: %v", pollID, err)
		status = StatusMetadataError
		return status
	}
	deviceID, err := o.Identity.DeviceID()
	if err != nil {
		log.Printf("[session %s] preflight: device id unavailable: %v", pollID, err)
		status = StatusMetadataError
		return status
	}
	log.Printf("[session %s] device %s running firmware %s", pollID, deviceID, firmwareVersion)

	// S1: Connect (construct the per-poll transport).
	client, err = o.newClient(o.Config, o.Metrics)
	if err != nil {
		log.Printf("[session %s] connect: %v", pollID, err)
		status = StatusNetworkingError
		return status
	}

	// S2: Poll base.
	result, err := client.Probe(ctx, baseURL(o.Config.JSONURLRoot, o.Config.Board, deviceID))
	if err != nil {
		log.Printf("[session %s] poll base: %v", pollID, err)
		status = StatusNetworkingError
		if !isTransportError(err) {
			status = StatusMetadataError
		}
		return status
	}
	if result.Control == nil {
		status = StatusMetadataError
		return status
	}
	control := result.Control

	if seconds, ok := protocol.PollingSleepSeconds(control.PollingSleep); ok {
		o.EffectivePollInterval = time.Duration(seconds) * time.Second
	}

	// S3: Cancel branch.
	if control.CancelAction != nil {
		status = o.runCancelBranch(ctx, client, control.CancelAction.Href, deviceID, pollID)
		return status
	}

	// S4: Config branch.
	if control.ConfigData != nil {
		if err := o.runConfigBranch(ctx, client, deviceID, pollID); err != nil {
			status = StatusNetworkingError
			return status
		}
	}

	// S5: Deployment probe.
	if control.DeploymentBase == nil {
		status = StatusNoUpdate
		return status
	}
	deploymentRef, err := protocol.ParseDeploymentReference(control.DeploymentBase.Href)
	if err != nil {
		status = StatusMetadataError
		return status
	}

	depResult, err := client.ProbeDeployment(ctx, deploymentURL(o.Config.JSONURLRoot, o.Config.Board, deviceID, deploymentRef.Path))
	if err != nil {
		log.Printf("[session %s] deployment probe: %v", pollID, err)
		status = StatusNetworkingError
		if !isTransportError(err) {
			status = StatusMetadataError
		}
		return status
	}
	if depResult.Deployment == nil {
		status = StatusMetadataError
		return status
	}
	deployment := depResult.Deployment

	artifactInfo := deployment.Chunk.Artifacts[0]
	if artifactInfo.Size > o.Bootloader.SpareSlot().Size() {
		status = StatusMetadataError
		return status
	}

	actionID, err := deployment.ActionID()
	if err != nil {
		status = StatusMetadataError
		return status
	}

	// S6: Dedup check.
	lastInstalled, present, err := o.ActionLog.Get()
	if err != nil {
		status = StatusMetadataError
		return status
	}
	if present && lastInstalled == actionID {
		if err := o.postDeploymentFeedback(ctx, client, deviceID, actionID, pollID); err != nil {
			status = StatusNetworkingError
			return status
		}
		status = StatusOK
		return status
	}

	// S7: Download.
	sink := artifact.New(o.Bootloader.SpareSlot())
	algorithm, digest, haveDigest := deployment.SelectedHash()
	if err := sink.Init(algorithm); err != nil {
		status = StatusMetadataError
		return status
	}
	if _, err := client.Download(ctx, artifactInfo.Links.DownloadHTTP.Href, sink); err != nil {
		log.Printf("[session %s] download: %v", pollID, err)
		status = StatusDownloadError
		return status
	}
	if haveDigest {
		if err := sink.VerifyDigest(digest); err != nil {
			log.Printf("[session %s] digest verification failed: %v", pollID, err)
			status = StatusDownloadError
			return status
		}
	}

	// S8: Request swap.
	if err := o.Bootloader.RequestSwap(); err != nil {
		log.Printf("[session %s] request swap: %v", pollID, err)
		status = StatusDownloadError
		return status
	}
	if err := o.ActionLog.Put(actionID); err != nil {
		status = StatusDownloadError
		return status
	}

	status = StatusUpdateInstalled
	return status
}

func (o *Orchestrator) runCancelBranch(ctx context.Context, client pollClient, href, deviceID, pollID string) Status {
	ref, err := protocol.ParseCancelReference(href)
	if err != nil {
		return StatusMetadataError
	}

	body, err := protocol.EncodeClosePayload(protocol.ClosePayload{
		ID: fmt.Sprintf("%d", ref.ActionID),
		Status: protocol.StatusPayload{
			Execution: protocol.ExecutionClosed,
			Finished:  protocol.FinishedSuccess,
		},
	})
	if err != nil {
		return StatusMetadataError
	}

	url := cancelFeedbackURL(o.Config.JSONURLRoot, o.Config.Board, deviceID, ref.Path)
	if _, err := client.PostClose(ctx, url, body); err != nil {
		log.Printf("[session %s] cancel feedback: %v", pollID, err)
		return StatusNetworkingError
	}
	return StatusCancelUpdate
}

// isTransportError reports whether err from an exchange came from the
// transport (dial, request or body read) rather than from an oversized or
// undecodable response body.
func isTransportError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (o *Orchestrator) runConfigBranch(ctx context.Context, client pollClient, deviceID, pollID string) error {
	payload := protocol.ConfigDataPayload{
		Mode: "merge",
		Status: protocol.StatusPayload{
			Execution: protocol.ExecutionClosed,
			Finished:  protocol.FinishedSuccess,
		},
	}
	payload.Data.VIN = deviceID
	payload.Data.HWRevision = hardwareRevision

	body, err := protocol.EncodeConfigDataPayload(payload)
	if err != nil {
		log.Printf("[session %s] encode config-data: %v", pollID, err)
		return nil
	}

	url := configDataURL(o.Config.JSONURLRoot, o.Config.Board, deviceID)
	if _, err := client.PutConfigData(ctx, url, body); err != nil {
		// A transport failure ends the poll with NETWORKING_ERROR; a non-200
		// HTTP status is only a soft signal, so S4 then proceeds to S5.
		log.Printf("[session %s] config-data: %v", pollID, err)
		return err
	}
	return nil
}

func (o *Orchestrator) postDeploymentFeedback(ctx context.Context, client pollClient, deviceID string, actionID int32, pollID string) error {
	body, err := protocol.EncodeFeedbackPayload(protocol.FeedbackPayload{
		ID: fmt.Sprintf("%d", actionID),
		Status: protocol.StatusPayload{
			Execution: protocol.ExecutionClosed,
			Finished:  protocol.FinishedSuccess,
		},
	})
	if err != nil {
		return err
	}
	url := deploymentFeedbackURL(o.Config.JSONURLRoot, o.Config.Board, deviceID, actionID)
	if _, err := client.PostReport(ctx, url, body); err != nil {
		log.Printf("[session %s] deployment feedback: %v", pollID, err)
		return err
	}
	return nil
}

func (o *Orchestrator) startSpan(ctx context.Context, pollID, state string) (context.Context, func()) {
	if o.Tracer == nil {
		return ctx, func() {}
	}
	deviceID := ""
	if o.Identity != nil {
		deviceID, _ = o.Identity.DeviceID()
	}
	newCtx, span := o.Tracer.StartPollSpan(ctx, otel.PollSpanOptions{
		PollID:   pollID,
		DeviceID: deviceID,
		Board:    o.Config.Board,
		State:    state,
	})
	return newCtx, func() { span.End() }
}

func (o *Orchestrator) recordPollOutcome(ctx context.Context, status Status, start time.Time) {
	if o.Metrics == nil {
		return
	}
	o.Metrics.RecordTerminalStatus(ctx, string(status))
	o.Metrics.RecordPollDuration(ctx, string(status), float64(time.Since(start).Milliseconds()))
}
