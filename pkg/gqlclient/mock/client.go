// Package mock provides a recording GraphQL client for testing.
package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/corewar/corewar-api/pkg/gqlclient"
)

// Client returns a canned result and records every request.
type Client struct {
	Data json.RawMessage
	Err  error

	OnQuery func(ctx context.Context, req *gqlclient.Request) (*gqlclient.Result, error)

	mu       sync.Mutex
	requests []*gqlclient.Request
}

// New creates a mock client answering every query with data.
func New(data string) *Client {
	return &Client{Data: json.RawMessage(data)}
}

// Query records the request and returns the configured response.
func (c *Client) Query(ctx context.Context, req *gqlclient.Request) (*gqlclient.Result, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.OnQuery != nil {
		return c.OnQuery(ctx, req)
	}
	if c.Err != nil {
		return nil, c.Err
	}
	return &gqlclient.Result{Data: c.Data}, nil
}

// Requests returns the requests seen so far.
func (c *Client) Requests() []*gqlclient.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*gqlclient.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

var _ gqlclient.Client = (*Client)(nil)
