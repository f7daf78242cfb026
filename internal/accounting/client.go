package accounting

import (
	"context"
	"encoding/json"
)

// Transport sends a resource call and returns the decoded JSON payload, or
// nil when there is none.
type Transport interface {
	Do(ctx context.Context, rd RequestDescriptor) (json.RawMessage, error)
}

// Client is the resource-oriented surface shared by the direct and proxy
// transports. Payloads are passed through untouched.
type Client struct {
	transport Transport
}

// NewClient wraps any Transport.
func NewClient(t Transport) *Client {
	return &Client{transport: t}
}

// Call issues an arbitrary request through the client's transport.
func (c *Client) Call(ctx context.Context, rd RequestDescriptor) (json.RawMessage, error) {
	return c.transport.Do(ctx, rd)
}

func (c *Client) get(ctx context.Context, path string, q Query) (json.RawMessage, error) {
	return c.transport.Do(ctx, RequestDescriptor{Method: "GET", Path: path, Query: q})
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	return c.transport.Do(ctx, RequestDescriptor{Method: "POST", Path: path, Body: body})
}

func (c *Client) patch(ctx context.Context, path string, ops []PatchOperation) (json.RawMessage, error) {
	if ops == nil {
		ops = []PatchOperation{}
	}
	return c.transport.Do(ctx, RequestDescriptor{Method: "PATCH", Path: path, Body: ops})
}
