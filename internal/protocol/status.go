package protocol

import "encoding/json"

// ExecutionState is the execution word in a status payload.
type ExecutionState string

const (
	ExecutionClosed     ExecutionState = "closed"
	ExecutionProceeding ExecutionState = "proceeding"
	ExecutionCanceled   ExecutionState = "canceled"
	ExecutionScheduled  ExecutionState = "scheduled"
	ExecutionRejected   ExecutionState = "rejected"
	ExecutionResumed    ExecutionState = "resumed"
	ExecutionNone       ExecutionState = "none"
)

// FinishedState is the finished word in a status payload.
type FinishedState string

const (
	FinishedSuccess FinishedState = "success"
	FinishedFailure FinishedState = "failure"
	FinishedNone    FinishedState = "none"
)

// StatusPayload is the execution/finished pair embedded in the config-data,
// close, and feedback wire shapes (spec.md §3).
type StatusPayload struct {
	Execution ExecutionState `json:"execution"`
	Finished  FinishedState  `json:"result"`
}

type statusWire struct {
	Execution ExecutionState `json:"execution"`
	Result    struct {
		Finished FinishedState `json:"finished"`
	} `json:"result"`
}

func (s StatusPayload) toWire() statusWire {
	var w statusWire
	w.Execution = s.Execution
	w.Result.Finished = s.Finished
	return w
}

// FeedbackPayload is POSTed to acknowledge a cancellation or report a
// deployment's outcome.
type FeedbackPayload struct {
	ID     string        `json:"id"`
	Status StatusPayload `json:"status"`
}

// EncodeFeedbackPayload marshals p, refusing to exceed MaxStatusPayload
// bytes (the spec's 200-byte status buffer).
func EncodeFeedbackPayload(p FeedbackPayload) ([]byte, error) {
	wire := struct {
		ID     string     `json:"id"`
		Status statusWire `json:"status"`
	}{ID: p.ID, Status: p.Status.toWire()}
	return encodeBounded(wire)
}

// ConfigDataPayload is PUT to report device attributes during S4.
type ConfigDataPayload struct {
	Mode string `json:"mode"`
	Data struct {
		VIN        string `json:"VIN"`
		HWRevision string `json:"hwRevision"`
	} `json:"data"`
	ID     string        `json:"id,omitempty"`
	Time   string        `json:"time,omitempty"`
	Status StatusPayload `json:"status"`
}

// EncodeConfigDataPayload marshals p, bounded to MaxStatusPayload bytes.
func EncodeConfigDataPayload(p ConfigDataPayload) ([]byte, error) {
	wire := struct {
		Mode string `json:"mode"`
		Data struct {
			VIN        string `json:"VIN"`
			HWRevision string `json:"hwRevision"`
		} `json:"data"`
		ID     string     `json:"id,omitempty"`
		Time   string     `json:"time,omitempty"`
		Status statusWire `json:"status"`
	}{Mode: p.Mode, ID: p.ID, Time: p.Time, Status: p.Status.toWire()}
	wire.Data = p.Data
	return encodeBounded(wire)
}

// ClosePayload reports deployment closure (used alongside feedback in some
// deployments; kept distinct from FeedbackPayload per spec.md §4.2's five
// named shapes).
type ClosePayload struct {
	ID     string        `json:"id"`
	Time   string        `json:"time,omitempty"`
	Status StatusPayload `json:"status"`
}

// EncodeClosePayload marshals p, bounded to MaxStatusPayload bytes.
func EncodeClosePayload(p ClosePayload) ([]byte, error) {
	wire := struct {
		ID     string     `json:"id"`
		Time   string     `json:"time,omitempty"`
		Status statusWire `json:"status"`
	}{ID: p.ID, Time: p.Time, Status: p.Status.toWire()}
	return encodeBounded(wire)
}

// encodeBounded marshals v and rejects an encoding that would not fit the
// spec's 200-byte status buffer (spec.md §4.2's encoder contract).
func encodeBounded(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(data) >= MaxStatusPayload {
		return nil, &ErrTooLarge{Reason: "encoded status payload exceeds status buffer capacity"}
	}
	return data, nil
}
