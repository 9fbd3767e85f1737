package protocol

import (
	"strings"
	"testing"
)

func TestDecodeControlResponse_IdlePoll(t *testing.T) {
	body := `{"config":{"polling":{"sleep":"00:05:00"}},"_links":{}}`
	cr, err := DecodeControlResponse(strings.NewReader(body), MaxAccumulatedBody)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cr.PollingSleep != "00:05:00" {
		t.Fatalf("unexpected sleep: %q", cr.PollingSleep)
	}
	if cr.DeploymentBase != nil || cr.CancelAction != nil || cr.ConfigData != nil {
		t.Fatalf("expected no links, got %+v", cr)
	}

	seconds, ok := PollingSleepSeconds(cr.PollingSleep)
	if !ok || seconds != 300 {
		t.Fatalf("expected 300s, got seconds=%d ok=%v", seconds, ok)
	}
}

func TestPollingSleepSeconds_RejectsWrongLength(t *testing.T) {
	if _, ok := PollingSleepSeconds("0:05:00"); ok {
		t.Fatal("expected rejection of a 7-char sleep string")
	}
	if _, ok := PollingSleepSeconds(""); ok {
		t.Fatal("expected rejection of an empty sleep string")
	}
}

func TestDecodeControlResponse_CancelLink(t *testing.T) {
	body := `{"config":{"polling":{"sleep":"00:01:00"}},"_links":{"cancelAction":{"href":"http://srv/default/controller/v1/bd-DID/cancelAction/42"}}}`
	cr, err := DecodeControlResponse(strings.NewReader(body), MaxAccumulatedBody)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ref, err := ParseCancelReference(cr.CancelAction.Href)
	if err != nil {
		t.Fatalf("parse cancel reference: %v", err)
	}
	if ref.ActionID != 42 {
		t.Fatalf("expected action id 42, got %d", ref.ActionID)
	}
	if ref.Path != "cancelAction/42" {
		t.Fatalf("expected path cancelAction/42, got %q", ref.Path)
	}
}

func TestParseCancelReference_RejectsNonPositiveID(t *testing.T) {
	if _, err := ParseCancelReference("http://srv/cancelAction/0"); err == nil {
		t.Fatal("expected error for action id 0")
	}
	if _, err := ParseCancelReference("http://srv/cancelAction/"); err == nil {
		t.Fatal("expected error for missing action id")
	}
}

func TestDecodeControlResponse_RejectsLinkMissingSubstring(t *testing.T) {
	body := `{"config":{"polling":{"sleep":"00:01:00"}},"_links":{"cancelAction":{"href":"http://srv/somewhereelse/42"}}}`
	if _, err := DecodeControlResponse(strings.NewReader(body), MaxAccumulatedBody); err == nil {
		t.Fatal("expected schema violation for cancelAction href missing 'cancelAction/'")
	}
}

const validDeploymentBody = `{
  "id": "17",
  "deployment": {
    "download": "forced",
    "update": "skip",
    "chunks": [{
      "part": "bApp",
      "name": "firmware",
      "version": "1.0.0",
      "artifacts": [{
        "filename": "app.bin",
        "size": 4096,
        "hashes": {"sha256": "abc123"},
        "_links": {"download-http": {"href": "http://srv/DEFAULT/controller/v1/bd-DID/deploymentBase/17/artifacts/app.bin"}}
      }]
    }]
  }
}`

func TestDecodeDeploymentResponse_Valid(t *testing.T) {
	dr, err := DecodeDeploymentResponse(strings.NewReader(validDeploymentBody), MaxAccumulatedBody)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, err := dr.ActionID()
	if err != nil || id != 17 {
		t.Fatalf("expected action id 17, got %d err=%v", id, err)
	}
	if dr.Chunk.Artifacts[0].Size != 4096 {
		t.Fatalf("expected size 4096, got %d", dr.Chunk.Artifacts[0].Size)
	}

	algo, digest, ok := dr.SelectedHash()
	if !ok || algo != "sha256" || digest != "abc123" {
		t.Fatalf("expected sha256 precedence, got algo=%q digest=%q ok=%v", algo, digest, ok)
	}
}

func TestDecodeDeploymentResponse_RejectsTwoChunks(t *testing.T) {
	body := `{"id":"1","deployment":{"download":"forced","update":"skip","chunks":[
      {"part":"bApp","artifacts":[{"filename":"a","size":1,"_links":{"download-http":{"href":"/DEFAULT/controller/v1/x"}}}]},
      {"part":"bApp","artifacts":[{"filename":"b","size":1,"_links":{"download-http":{"href":"/DEFAULT/controller/v1/y"}}}]}
    ]}}`
	if _, err := DecodeDeploymentResponse(strings.NewReader(body), MaxAccumulatedBody); err == nil {
		t.Fatal("expected schema violation for two chunks")
	}
}

func TestDecodeDeploymentResponse_RejectsMissingDownloadSubstring(t *testing.T) {
	body := `{"id":"1","deployment":{"download":"forced","update":"skip","chunks":[
      {"part":"bApp","artifacts":[{"filename":"a","size":1,"_links":{"download-http":{"href":"/somewhere/else"}}}]}
    ]}}`
	if _, err := DecodeDeploymentResponse(strings.NewReader(body), MaxAccumulatedBody); err == nil {
		t.Fatal("expected schema violation for missing /DEFAULT/controller/v1 substring")
	}
}

func TestDecodeDeploymentResponse_RejectsWrongPart(t *testing.T) {
	body := `{"id":"1","deployment":{"download":"forced","update":"skip","chunks":[
      {"part":"notBApp","artifacts":[{"filename":"a","size":1,"_links":{"download-http":{"href":"/DEFAULT/controller/v1/x"}}}]}
    ]}}`
	if _, err := DecodeDeploymentResponse(strings.NewReader(body), MaxAccumulatedBody); err == nil {
		t.Fatal("expected schema violation for non-bApp part")
	}
}

func TestDecodeBounded_RejectsOversizedBody(t *testing.T) {
	body := strings.Repeat("a", 100)
	if _, err := DecodeDeploymentResponse(strings.NewReader(body), 10); err == nil {
		t.Fatal("expected ErrTooLarge for a body exceeding the accumulator limit")
	}
}

func TestEncodeFeedbackPayload_WritesLowercaseLiterals(t *testing.T) {
	p := FeedbackPayload{ID: "17", Status: StatusPayload{Execution: ExecutionClosed, Finished: FinishedSuccess}}
	data, err := EncodeFeedbackPayload(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `"execution":"closed"`) {
		t.Fatalf("expected lowercase execution literal, got %s", data)
	}
	if !strings.Contains(string(data), `"finished":"success"`) {
		t.Fatalf("expected lowercase finished literal, got %s", data)
	}
}

func TestEncodeFeedbackPayload_RejectsOversizedResult(t *testing.T) {
	p := FeedbackPayload{ID: strings.Repeat("9", MaxStatusPayload), Status: StatusPayload{Execution: ExecutionClosed, Finished: FinishedSuccess}}
	if _, err := EncodeFeedbackPayload(p); err == nil {
		t.Fatal("expected ErrTooLarge for an oversized id")
	}
}
