package deltasync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/marcus/offsync/internal/transport"
)

type stubSender struct {
	gotReq transport.Request
	resp   *transport.Response
	err    error
}

func (s *stubSender) Send(ctx context.Context, req transport.Request) (*transport.Response, error) {
	s.gotReq = req
	return s.resp, s.err
}

func TestDeltaSyncRoundTrip(t *testing.T) {
	stub := &stubSender{
		resp: &transport.Response{
			Status: 200,
			Body: json.RawMessage(`{
				"bundles": [{"collection": "screens", "hash": "h2", "data": {"k": 1}}],
				"server_time": "2026-08-28T12:00:00Z"
			}`),
		},
	}
	c := NewClient(stub)

	result, err := c.DeltaSync(context.Background(), map[string]string{"screens": "h1", "nav": "h9"})
	if err != nil {
		t.Fatalf("delta sync: %v", err)
	}

	if stub.gotReq.Method != "POST" || stub.gotReq.Endpoint != DefaultEndpoint {
		t.Errorf("request: %s %s", stub.gotReq.Method, stub.gotReq.Endpoint)
	}
	var sent deltaRequest
	if err := json.Unmarshal(stub.gotReq.Body, &sent); err != nil {
		t.Fatalf("unmarshal sent body: %v", err)
	}
	if sent.Hashes["screens"] != "h1" || sent.Hashes["nav"] != "h9" {
		t.Errorf("sent hashes: %+v", sent.Hashes)
	}

	if len(result.Bundles) != 1 {
		t.Fatalf("bundles: %d, want 1", len(result.Bundles))
	}
	b := result.Bundles[0]
	if b.Collection != "screens" || b.Hash != "h2" {
		t.Errorf("bundle: %+v", b)
	}
}

func TestDeltaSyncPropagatesSendError(t *testing.T) {
	stub := &stubSender{err: &transport.SendError{Kind: transport.KindTimeout}}
	c := NewClient(stub)

	_, err := c.DeltaSync(context.Background(), nil)
	var se *transport.SendError
	if !errors.As(err, &se) || se.Kind != transport.KindTimeout {
		t.Fatalf("expected wrapped timeout, got %v", err)
	}
}

func TestDeltaSyncDecodeError(t *testing.T) {
	stub := &stubSender{resp: &transport.Response{Status: 200, Body: json.RawMessage(`[`)}}
	c := NewClient(stub)

	_, err := c.DeltaSync(context.Background(), nil)
	var se *transport.SendError
	if !errors.As(err, &se) || se.Kind != transport.KindDecoding {
		t.Fatalf("expected decoding error, got %v", err)
	}
}
