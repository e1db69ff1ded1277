package gqlclient

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps logical scopes (e.g. "hills") to the client serving them.
type Registry struct {
	clients map[string]Client
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
	}
}

// Register binds a client to a scope, replacing any previous binding.
func (r *Registry) Register(scope string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[scope] = c
}

// Get returns the client for a scope.
func (r *Registry) Get(scope string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.clients[scope]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrScopeNotFound, scope)
}

// Scopes returns the registered scope names in sorted order.
func (r *Registry) Scopes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scopes := make([]string, 0, len(r.clients))
	for scope := range r.clients {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes
}
