package protocol

import (
	"io"
	"strconv"
	"strings"
)

// ControlResponse is the parsed result of the base polling resource
// (spec.md §3). Each hyperlink is nil when the server omitted it.
type ControlResponse struct {
	PollingSleep   string
	DeploymentBase *Link
	CancelAction   *Link
	ConfigData     *Link
}

type controlResponseWire struct {
	Config struct {
		Polling struct {
			Sleep string `json:"sleep"`
		} `json:"polling"`
	} `json:"config"`
	Links struct {
		DeploymentBase *Link `json:"deploymentBase"`
		CancelAction   *Link `json:"cancelAction"`
		ConfigData     *Link `json:"configData"`
	} `json:"_links"`
}

// DecodeControlResponse decodes and validates a control (base poll) response.
func DecodeControlResponse(r io.Reader, limit int64) (*ControlResponse, error) {
	var wire controlResponseWire
	if err := decodeBounded(r, limit, &wire); err != nil {
		return nil, err
	}

	cr := &ControlResponse{
		PollingSleep:   wire.Config.Polling.Sleep,
		DeploymentBase: wire.Links.DeploymentBase,
		CancelAction:   wire.Links.CancelAction,
		ConfigData:     wire.Links.ConfigData,
	}

	if err := validateLink(cr.DeploymentBase, "deploymentBase/"); err != nil {
		return nil, err
	}
	if err := validateLink(cr.CancelAction, "cancelAction/"); err != nil {
		return nil, err
	}
	if err := validateLink(cr.ConfigData, "configData"); err != nil {
		return nil, err
	}

	return cr, nil
}

// validateLink enforces spec.md §3's invariant: a hyperlink is either
// absent (nil) or a non-empty URL containing the expected substring.
func validateLink(l *Link, wantSubstring string) error {
	if l == nil {
		return nil
	}
	if l.Href == "" {
		return &ErrSchemaViolation{Reason: "hyperlink present but href is empty"}
	}
	if !strings.Contains(l.Href, wantSubstring) {
		return &ErrSchemaViolation{Reason: "hyperlink href missing expected substring " + wantSubstring}
	}
	return nil
}

// PollingSleepSeconds parses an "HH:MM:SS" sleep string (exactly 8 bytes)
// into a duration in seconds. It returns ok=false for any other length or a
// non-numeric component, per spec.md §4.5 S2's update-only-when-valid rule.
func PollingSleepSeconds(sleep string) (seconds int, ok bool) {
	if len(sleep) != 8 {
		return 0, false
	}
	if sleep[2] != ':' || sleep[5] != ':' {
		return 0, false
	}
	h, err := strconv.Atoi(sleep[0:2])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(sleep[3:5])
	if err != nil {
		return 0, false
	}
	s, err := strconv.Atoi(sleep[6:8])
	if err != nil {
		return 0, false
	}
	total := h*3600 + m*60 + s
	if total <= 0 {
		return 0, false
	}
	return total, true
}

// CancelReference is the action id extracted from a cancelAction href
// (spec.md §3): the decimal id following the "cancelAction/" segment.
type CancelReference struct {
	ActionID int32
	Path     string
}

// ParseCancelReference extracts the cancel action id from href, e.g.
// ".../cancelAction/42" -> ActionID=42, Path="cancelAction/42". Extracting a
// non-positive id is a server error per the spec.
func ParseCancelReference(href string) (*CancelReference, error) {
	return parseTrailingIDReference(href, "cancelAction")
}

// DeploymentReference is the path segment extracted from a deploymentBase
// href, analogous to CancelReference.
type DeploymentReference struct {
	ActionID int32
	Path     string
}

// ParseDeploymentReference extracts the deployment action id from href.
func ParseDeploymentReference(href string) (*DeploymentReference, error) {
	ref, err := parseTrailingIDReference(href, "deploymentBase")
	if err != nil {
		return nil, err
	}
	return &DeploymentReference{ActionID: ref.ActionID, Path: ref.Path}, nil
}

func parseTrailingIDReference(href, base string) (*CancelReference, error) {
	idx := strings.Index(href, base+"/")
	if idx < 0 {
		return nil, &ErrSchemaViolation{Reason: "href missing " + base + "/ segment"}
	}
	rest := href[idx+len(base)+1:]
	// Trim any trailing path (e.g. query string); the action id is the
	// leading run of decimal digits.
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil, &ErrSchemaViolation{Reason: "href has no decimal action id after " + base + "/"}
	}
	id, err := strconv.Atoi(rest[:end])
	if err != nil || id <= 0 {
		return nil, &ErrSchemaViolation{Reason: "href action id is not a positive integer"}
	}
	return &CancelReference{ActionID: int32(id), Path: base + "/" + rest[:end]}, nil
}
