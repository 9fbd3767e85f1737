package protocol

import (
	"io"
	"strconv"
	"strings"
)

// DeploymentResponse is the parsed result of the deployment-probe resource
// (spec.md §3): a decimal action id, phase words, and exactly one chunk.
type DeploymentResponse struct {
	ID       string
	Download string
	Update   string
	Chunk    Chunk
}

type deploymentResponseWire struct {
	ID         string `json:"id"`
	Deployment struct {
		Download string  `json:"download"`
		Update   string  `json:"update"`
		Chunks   []Chunk `json:"chunks"`
	} `json:"deployment"`
}

// DecodeDeploymentResponse decodes and validates a deployment response
// against the fixed schema in spec.md §3: exactly one chunk, part=="bApp",
// exactly one artifact, a download-http href containing the expected
// substring. A missing required field is an ErrMissingField; any other
// deviation is an ErrSchemaViolation.
func DecodeDeploymentResponse(r io.Reader, limit int64) (*DeploymentResponse, error) {
	var wire deploymentResponseWire
	if err := decodeBounded(r, limit, &wire); err != nil {
		return nil, err
	}

	if wire.ID == "" {
		return nil, &ErrMissingField{Field: "id"}
	}
	if n, err := strconv.Atoi(wire.ID); err != nil || n <= 0 {
		return nil, &ErrSchemaViolation{Reason: "id is not a positive decimal action id"}
	}
	if wire.Deployment.Download == "" {
		return nil, &ErrMissingField{Field: "deployment.download"}
	}
	if wire.Deployment.Update == "" {
		return nil, &ErrMissingField{Field: "deployment.update"}
	}
	if len(wire.Deployment.Chunks) != MaxChunks {
		return nil, &ErrSchemaViolation{Reason: "deployment must have exactly one chunk"}
	}

	chunk := wire.Deployment.Chunks[0]
	if chunk.Part != "bApp" {
		return nil, &ErrSchemaViolation{Reason: `chunk part must be "bApp"`}
	}
	if len(chunk.Artifacts) != MaxArtifactsPerChunk {
		return nil, &ErrSchemaViolation{Reason: "chunk must have exactly one artifact"}
	}

	artifact := chunk.Artifacts[0]
	if artifact.Filename == "" {
		return nil, &ErrMissingField{Field: "artifacts[0].filename"}
	}
	if artifact.Size <= 0 {
		return nil, &ErrSchemaViolation{Reason: "artifact size must be positive"}
	}
	if artifact.Links.DownloadHTTP.Href == "" {
		return nil, &ErrMissingField{Field: "artifacts[0]._links.download-http.href"}
	}
	if !strings.Contains(artifact.Links.DownloadHTTP.Href, requiredDownloadHTTPSubstring) {
		return nil, &ErrSchemaViolation{Reason: "download-http href missing " + requiredDownloadHTTPSubstring}
	}

	return &DeploymentResponse{
		ID:       wire.ID,
		Download: wire.Deployment.Download,
		Update:   wire.Deployment.Update,
		Chunk:    chunk,
	}, nil
}

// ActionID parses the response's decimal id string into an int32.
func (d *DeploymentResponse) ActionID() (int32, error) {
	id, err := strconv.Atoi(d.ID)
	if err != nil {
		return 0, &ErrSchemaViolation{Reason: "id is not a decimal action id"}
	}
	return int32(id), nil
}

// SelectedHash returns the artifact's strongest available digest, following
// the sha256 > sha1 > md5 precedence spec.md §9 recommends for the
// post-download verification this client adds.
func (d *DeploymentResponse) SelectedHash() (algorithm, digest string, ok bool) {
	h := d.Chunk.Artifacts[0].Hashes
	switch {
	case h.SHA256 != "":
		return "sha256", h.SHA256, true
	case h.SHA1 != "":
		return "sha1", h.SHA1, true
	case h.MD5 != "":
		return "md5", h.MD5, true
	default:
		return "", "", false
	}
}
