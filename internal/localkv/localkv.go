// Package localkv provides the durable key/value media that back the
// terminal's encrypted offline store.
package localkv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("key not found")

type Medium interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Open builds the medium named by driver: "memory", "sqlite" or "redis".
func Open(ctx context.Context, driver, path, redisURL string) (Medium, func() error, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite":
		medium, err := NewSQLite(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return medium, medium.Close, nil
	case "redis":
		medium, err := NewRedis(ctx, redisURL)
		if err != nil {
			return nil, nil, err
		}
		return medium, medium.Close, nil
	case "memory":
		return NewMemory(), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown local store driver %q", driver)
}

type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

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

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
