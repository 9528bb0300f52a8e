// Package credentials stores provider API keys and OAuth tokens.
package credentials

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("credential not found")

// KeyValue is the secure key-value backend a Store is built on.
type KeyValue interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete is a no-op when key is absent.
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process KeyValue, used in tests and as a fallback when
// no keyring is available.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
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
