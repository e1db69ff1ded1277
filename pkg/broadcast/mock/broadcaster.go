// Package mock provides a recording broadcaster for testing.
package mock

import (
	"context"
	"sync"

	"github.com/corewar/corewar-api/pkg/broadcast"
)

// Call is one recorded Broadcast invocation.
type Call struct {
	Event    string
	Envelope broadcast.Envelope
}

// Broadcaster records every event and optionally fails.
type Broadcaster struct {
	Err error

	mu    sync.Mutex
	calls []Call
}

// New creates a recording broadcaster.
func New() *Broadcaster {
	return &Broadcaster{}
}

// Broadcast records the call and returns the configured error.
func (b *Broadcaster) Broadcast(ctx context.Context, event string, env broadcast.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, Call{Event: event, Envelope: env})
	return b.Err
}

// Calls returns the recorded calls in order.
func (b *Broadcaster) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

var _ broadcast.Broadcaster = (*Broadcaster)(nil)
