// Package tokenstore provides durable key-value storage for the client credential.
// It defines the Store interface with in-memory, file and Redis implementations.
package tokenstore

import (
	"context"
	"errors"
	"sync"
)

// AuthTokenKey is the key under which the bearer token is kept.
const AuthTokenKey = "auth_token"

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("tokenstore: key not found")

// Store is a small persisted key-value interface.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Memory keeps values in process memory. It is used in tests and when persistence is disabled.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
