package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// HTTPSender sends requests to the remote sync server over HTTP.
type HTTPSender struct {
	BaseURL  string
	APIKey   string
	DeviceID string
	HTTP     *http.Client
}

// NewHTTPSender creates a sender with a 30 second request timeout.
func NewHTTPSender(baseURL, apiKey, deviceID string) *HTTPSender {
	return &HTTPSender{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		DeviceID: deviceID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Send implements Sender. All failures come back as *SendError.
func (s *HTTPSender) Send(ctx context.Context, req Request) (*Response, error) {
	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, s.BaseURL+req.Endpoint, bodyReader)
	if err != nil {
		return nil, &SendError{Kind: KindUnclassified, Message: "create request", Err: err}
	}
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if s.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	if s.DeviceID != "" {
		httpReq.Header.Set("X-Device-ID", s.DeviceID)
	}

	resp, err := s.HTTP.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SendError{Kind: KindNetwork, Message: "read response", Err: err}
	}

	if resp.StatusCode >= 400 {
		msg := string(respBody)
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Code != "" {
			msg = apiErr.Code
			if apiErr.Message != "" {
				msg = fmt.Sprintf("%s: %s", apiErr.Code, apiErr.Message)
			}
		}
		return nil, &SendError{
			Kind:    ClassifyStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: msg,
		}
	}

	if len(respBody) > 0 && !json.Valid(respBody) {
		return nil, &SendError{
			Kind:    KindDecoding,
			Status:  resp.StatusCode,
			Message: "response is not valid JSON",
		}
	}

	return &Response{Status: resp.StatusCode, Body: respBody}, nil
}

// classifyTransportError maps http.Client errors to SendError kinds.
func classifyTransportError(err error) *SendError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &SendError{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &SendError{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	return &SendError{Kind: KindNetwork, Message: "network failure", Err: err}
}

// HealthCheck hits the /healthz endpoint to verify server reachability.
func (s *HTTPSender) HealthCheck(ctx context.Context) error {
	_, err := s.Send(ctx, Request{Method: http.MethodGet, Endpoint: "/healthz"})
	return err
}
