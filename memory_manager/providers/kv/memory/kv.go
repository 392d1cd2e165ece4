package memory

import (
	"context"
	"sync"
	"time"

	"github.com/w-h-a/rag/memory_manager/providers/kv"
)

type entry struct {
	value     string
	expiresAt time.Time
}

type memoryKV struct {
	options kv.Options
	entries map[string]entry
	now     func() time.Time
	mtx     sync.RWMutex
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	e, ok := m.entries[m.options.Prefix+key]
	if !ok {
		return "", false, nil
	}

	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		return "", false, nil
	}

	return e.value, true, nil
}

func (m *memoryKV) Put(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	m.entries[m.options.Prefix+key] = e

	// expired entries are swept lazily on write
	now := m.now()
	for k, v := range m.entries {
		if !v.expiresAt.IsZero() && !now.Before(v.expiresAt) {
			delete(m.entries, k)
		}
	}

	return nil
}

func NewKV(opts ...kv.Option) kv.KV {
	options := kv.NewOptions(opts...)

	return &memoryKV{
		options: options,
		entries: map[string]entry{},
		now:     time.Now,
		mtx:     sync.RWMutex{},
	}
}
