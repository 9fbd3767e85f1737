package exchange

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/anthropics/hawkbit-go-client/internal/artifact"
	"github.com/anthropics/hawkbit-go-client/internal/config"
	"github.com/anthropics/hawkbit-go-client/internal/testutil"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	cfg := config.Default()
	cfg.Server = host
	cfg.Port = port
	cfg.TLSEnabled = false

	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestClient_ProbeDecodesControlResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"config":{"polling":{"sleep":"00:01:00"}},"_links":{}}`))
	}))
	defer server.Close()

	client := testClient(t, server)
	result, err := client.Probe(context.Background(), "/default/controller/v1/dev1")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if result.Control == nil {
		t.Fatal("expected a decoded control response")
	}
	if result.Control.PollingSleep != "00:01:00" {
		t.Fatalf("unexpected polling sleep: %q", result.Control.PollingSleep)
	}
}

func TestClient_ProbePassesThroughNon200WithoutDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client := testClient(t, server)
	result, err := client.Probe(context.Background(), "/default/controller/v1/dev1")
	if err != nil {
		t.Fatalf("expected no error on non-200 probe, got %v", err)
	}
	if result.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", result.StatusCode)
	}
	if result.Control != nil {
		t.Fatal("expected no decoded control response for a non-200 status")
	}
}

func TestClient_ProbeRejectsOversizedBody(t *testing.T) {
	oversized := strings.Repeat("x", maxAccumulatorCapacity+1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(oversized))
	}))
	defer server.Close()

	client := testClient(t, server)
	if _, err := client.Probe(context.Background(), "/default/controller/v1/dev1"); err != ErrMetadata {
		t.Fatalf("expected ErrMetadata, got %v", err)
	}
}

func TestClient_DownloadStreamsIntoSink(t *testing.T) {
	payload := make([]byte, 10000)
	for i := range payload {
		payload[i] = byte(i)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer server.Close()

	client := testClient(t, server)
	slot := testutil.NewFakeSpareSlot(int64(len(payload)))
	sink := artifact.New(slot)
	if err := sink.Init(""); err != nil {
		t.Fatalf("init sink: %v", err)
	}

	result, err := client.Download(context.Background(), "/DEFAULT/controller/v1/dev1/softwaremodules/1/artifacts/fw.bin", sink)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if result.BytesWritten != int64(len(payload)) {
		t.Fatalf("expected %d bytes written, got %d", len(payload), result.BytesWritten)
	}
	if string(slot.Bytes()) != string(payload) {
		t.Fatal("spare slot contents do not match downloaded payload")
	}
}

func TestClient_FeedbackTreatsNon200AsSoftSignal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(t, server)
	result, err := client.PostReport(context.Background(), "/default/controller/v1/dev1/deploymentBase/1/feedback", []byte(`{}`))
	if err != nil {
		t.Fatalf("expected no error on non-200 feedback, got %v", err)
	}
	if result.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 to pass through as a soft signal, got %d", result.StatusCode)
	}
}
