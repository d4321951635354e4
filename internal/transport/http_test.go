package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func sendTo(t *testing.T, handler http.HandlerFunc, req Request) (*Response, error) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewHTTPSender(srv.URL, "test-key", "dev-1")
	return s.Send(context.Background(), req)
}

func TestSendSuccess(t *testing.T) {
	resp, err := sendTo(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header: got %q", got)
		}
		if got := r.Header.Get("X-Device-ID"); got != "dev-1" {
			t.Errorf("device header: got %q", got)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}, Request{Method: "POST", Endpoint: "/v1/items", Body: json.RawMessage(`{"a":1}`)})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("status: got %d", resp.Status)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Errorf("body: got %s", resp.Body)
	}
}

func TestSendClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusNotFound, KindNotFound},
		{http.StatusConflict, KindConflict},
		{http.StatusBadRequest, KindClientError},
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindForbidden},
		{http.StatusInternalServerError, KindServerError},
		{http.StatusBadGateway, KindServerError},
	}
	for _, tc := range cases {
		_, err := sendTo(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"code":"err","message":"boom"}`))
		}, Request{Method: "GET", Endpoint: "/x"})

		var se *SendError
		if !errors.As(err, &se) {
			t.Fatalf("status %d: expected SendError, got %v", tc.status, err)
		}
		if se.Kind != tc.kind {
			t.Errorf("status %d: kind got %v, want %v", tc.status, se.Kind, tc.kind)
		}
		if se.Status != tc.status {
			t.Errorf("status %d: recorded status %d", tc.status, se.Status)
		}
		if se.Message != "err: boom" {
			t.Errorf("status %d: message %q", tc.status, se.Message)
		}
	}
}

func TestSendInvalidJSONBody(t *testing.T) {
	_, err := sendTo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}, Request{Method: "GET", Endpoint: "/x"})

	var se *SendError
	if !errors.As(err, &se) || se.Kind != KindDecoding {
		t.Fatalf("expected decoding error, got %v", err)
	}
}

func TestSendNetworkFailure(t *testing.T) {
	s := NewHTTPSender("http://127.0.0.1:1", "", "")
	_, err := s.Send(context.Background(), Request{Method: "GET", Endpoint: "/x"})

	var se *SendError
	if !errors.As(err, &se) || se.Kind != KindNetwork {
		t.Fatalf("expected network failure, got %v", err)
	}
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	s := NewHTTPSender(srv.URL, "", "")
	s.HTTP.Timeout = 50 * time.Millisecond
	_, err := s.Send(context.Background(), Request{Method: "GET", Endpoint: "/slow"})

	var se *SendError
	if !errors.As(err, &se) || se.Kind != KindTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestClassifyStatus(t *testing.T) {
	if got := ClassifyStatus(418); got != KindClientError {
		t.Errorf("418: got %v", got)
	}
	if got := ClassifyStatus(599); got != KindServerError {
		t.Errorf("599: got %v", got)
	}
	if got := ClassifyStatus(302); got != KindUnclassified {
		t.Errorf("302: got %v", got)
	}
}
