// Package session implements the Session Orchestrator (spec.md §4.5): the
// per-poll walk through states S0..S8, plus the smaller bootstrap state
// machine that runs once at process start.
package session

// Status is a poll's terminal outcome (spec.md §7, exhaustive).
type Status string

const (
	StatusOK               Status = "OK"
	StatusNoUpdate         Status = "NO_UPDATE"
	StatusUpdateInstalled  Status = "UPDATE_INSTALLED"
	StatusCancelUpdate     Status = "CANCEL_UPDATE"
	StatusUnconfirmedImage Status = "UNCONFIRMED_IMAGE"
	StatusDownloadError    Status = "DOWNLOAD_ERROR"
	StatusNetworkingError  Status = "NETWORKING_ERROR"
	StatusMetadataError    Status = "METADATA_ERROR"
)
