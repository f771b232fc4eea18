// Package filestore persists each slot as a JSON file under a directory,
// so collections survive a process restart.
package filestore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/storage"
)

const slotExt = ".json"

type backend struct {
	*storage.Notifier

	dir string

	mu     sync.RWMutex
	closed bool
}

var _ storage.Backend = (*backend)(nil)

func New(dir string) (storage.Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating slot directory")
	}
	return &backend{
		Notifier: storage.NewNotifier(),
		dir:      dir,
	}, nil
}

func (b *backend) path(key string) string {
	return filepath.Join(b.dir, key+slotExt)
}

func (b *backend) Get(key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false, storage.ErrClosed
	}
	data, err := os.ReadFile(b.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "reading slot file")
	}
	return data, true, nil
}

func (b *backend) Set(key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return storage.ErrClosed
	}
	// write-then-rename so readers never observe a partial slot
	tmp := b.path(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		b.mu.Unlock()
		return errors.Wrap(err, "writing slot file")
	}
	if err := os.Rename(tmp, b.path(key)); err != nil {
		b.mu.Unlock()
		return errors.Wrap(err, "replacing slot file")
	}
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
	if err := os.Remove(b.path(key)); err != nil && !os.IsNotExist(err) {
		b.mu.Unlock()
		return errors.Wrap(err, "removing slot file")
	}
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
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, errors.Wrap(err, "listing slot directory")
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, slotExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, slotExt))
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
