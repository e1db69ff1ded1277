// Package gqlclient queries remote GraphQL data services by logical scope.
package gqlclient

import (
	"context"
	"encoding/json"
	"fmt"
)

// Client executes GraphQL operations against one remote service.
type Client interface {
	// Query runs a query with variables and returns the response envelope.
	Query(ctx context.Context, req *Request) (*Result, error)
}

// Request is a GraphQL operation sent to a remote service.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Result is the response envelope of a remote GraphQL service.
type Result struct {
	Data   json.RawMessage `json:"data"`
	Errors []ResponseError `json:"errors,omitempty"`
}

// ResponseError is a single GraphQL error entry.
type ResponseError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Decode unmarshals the data field into v.
func (r *Result) Decode(v any) error {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return ErrNoData
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decoding result data: %w", err)
	}
	return nil
}
