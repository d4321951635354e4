// Package deltasync reconciles local state with the server after a
// reconnect: it reports the hashes of locally known collections and
// receives back only the collections that changed.
package deltasync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/marcus/offsync/internal/transport"
)

// DefaultEndpoint is where the server exposes delta reconciliation.
const DefaultEndpoint = "/v1/sync/delta"

// Bundle is one changed collection returned by the server.
type Bundle struct {
	Collection string          `json:"collection"`
	Hash       string          `json:"hash"`
	Data       json.RawMessage `json:"data"`
}

// Result is the server's answer to a delta request. Collections whose
// hash matched are omitted.
type Result struct {
	Bundles    []Bundle `json:"bundles"`
	ServerTime string   `json:"server_time,omitempty"`
}

// Syncer is the delta-sync collaborator consumed by the connectivity
// manager.
type Syncer interface {
	DeltaSync(ctx context.Context, hashes map[string]string) (*Result, error)
}

// Client implements Syncer over the transport sender.
type Client struct {
	sender   transport.Sender
	endpoint string
}

// NewClient creates a delta-sync client using the default endpoint.
func NewClient(sender transport.Sender) *Client {
	return &Client{sender: sender, endpoint: DefaultEndpoint}
}

type deltaRequest struct {
	Hashes map[string]string `json:"hashes"`
}

// DeltaSync posts the local hashes and decodes the changed bundles.
func (c *Client) DeltaSync(ctx context.Context, hashes map[string]string) (*Result, error) {
	body, err := json.Marshal(deltaRequest{Hashes: hashes})
	if err != nil {
		return nil, fmt.Errorf("marshal delta request: %w", err)
	}

	resp, err := c.sender.Send(ctx, transport.Request{
		Method:   http.MethodPost,
		Endpoint: c.endpoint,
		Body:     body,
	})
	if err != nil {
		return nil, fmt.Errorf("delta sync: %w", err)
	}

	var result Result
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &result); err != nil {
			return nil, &transport.SendError{
				Kind:    transport.KindDecoding,
				Message: "decode delta response",
				Err:     err,
			}
		}
	}
	return &result, nil
}
