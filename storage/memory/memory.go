// Package memstore provides the in-process slot backend. It is the default
// target in DEV/TEST mode and the reference implementation for the others.
package memstore

import (
	"sync"

	"github.com/madrasa-app/madrasa/storage"
)

type backend struct {
	*storage.Notifier

	mu     sync.RWMutex
	slots  map[string][]byte
	closed bool
}

var _ storage.Backend = (*backend)(nil)

func New() storage.Backend {
	return &backend{
		Notifier: storage.NewNotifier(),
		slots:    make(map[string][]byte),
	}
}

func (b *backend) Get(key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false, storage.ErrClosed
	}
	val, ok := b.slots[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, true, nil
}

func (b *backend) Set(key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return storage.ErrClosed
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	b.slots[key] = cp
	b.mu.Unlock()

	b.Notify(key)
	return nil
}

func (b *backend) Remove(key string) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return storage.ErrClosed
	}
	delete(b.slots, key)
	b.mu.Unlock()

	b.Notify(key)
	return nil
}

func (b *backend) Keys() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, storage.ErrClosed
	}
	keys := make([]string, 0, len(b.slots))
	for key := range b.slots {
		keys = append(keys, key)
	}
	return keys, nil
}

func (b *backend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.CloseNotifier()
	return nil
}
