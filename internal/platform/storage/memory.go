package storage

import (
	"context"
	"sync"
)

type memoryBackend struct {
	items map[string][]byte
	mutex sync.RWMutex
}

// NewMemory builds an in-process backend. State does not survive restarts;
// it is the default driver and the one tests lean on.
func NewMemory() Backend {
	return &memoryBackend{
		items: make(map[string][]byte),
	}
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	value, ok := b.items[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	b.mutex.Lock()
	b.items[key] = stored
	b.mutex.Unlock()
	return nil
}

func (b *memoryBackend) Delete(_ context.Context, key string) error {
	b.mutex.Lock()
	delete(b.items, key)
	b.mutex.Unlock()
	return nil
}

func (b *memoryBackend) Keys(_ context.Context) ([]string, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	keys := make([]string, 0, len(b.items))
	for key := range b.items {
		keys = append(keys, key)
	}
	return keys, nil
}

func (b *memoryBackend) Close(context.Context) error {
	return nil
}
