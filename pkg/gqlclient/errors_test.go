package gqlclient_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/corewar/corewar-api/pkg/gqlclient"
	"github.com/stretchr/testify/assert"
)

func TestQueryError_Error(t *testing.T) {
	err := gqlclient.NewQueryError("hills", gqlclient.CodeGraphQL, "field not found")
	assert.Equal(t, "hills query error (GRAPHQL): field not found", err.Error())
}

func TestQueryError_ErrorWithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := gqlclient.NewQueryError("hills", gqlclient.CodeTransport, "request failed").WithCause(cause)
	assert.Contains(t, err.Error(), "request failed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, errors.Is(err, cause))
}

func TestQueryError_Is(t *testing.T) {
	err1 := gqlclient.NewQueryError("hills", gqlclient.CodeHTTPStatus, "bad gateway")
	err2 := gqlclient.NewQueryError("warriors", gqlclient.CodeHTTPStatus, "unavailable")
	err3 := gqlclient.NewQueryError("hills", gqlclient.CodeGraphQL, "bad gateway")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestQueryError_WithStatusCode(t *testing.T) {
	err := gqlclient.NewQueryError("hills", gqlclient.CodeHTTPStatus, "unauthorized").WithStatusCode(401)
	assert.Equal(t, 401, err.StatusCode)
}

func TestIsRetryable(t *testing.T) {
	retryable := gqlclient.NewQueryError("hills", gqlclient.CodeHTTPStatus, "unavailable").WithRetryable(true)
	assert.True(t, gqlclient.IsRetryable(retryable))
	assert.True(t, gqlclient.IsRetryable(fmt.Errorf("wrapped: %w", retryable)))

	assert.False(t, gqlclient.IsRetryable(gqlclient.NewQueryError("hills", gqlclient.CodeGraphQL, "bad query")))
	assert.False(t, gqlclient.IsRetryable(errors.New("plain")))
}
