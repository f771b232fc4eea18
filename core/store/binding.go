package store

import (
	"sync"

	"github.com/madrasa-app/madrasa/storage"
)

// Binding mirrors a Store's contents into an in-memory snapshot and keeps it
// current: its own mutations are applied to the snapshot in place, and a
// change event naming the store's slot (a write from elsewhere) triggers a
// full reload. Reads are served from the snapshot, which may briefly lag a
// concurrent writer until its event is delivered.
type Binding[T Keyed] struct {
	store *Store[T]

	mu      sync.RWMutex
	items   []T
	gen     uint64 // bumped by every reload
	lastErr error

	cancel    func()
	closeOnce sync.Once
}

// Bind loads the collection and subscribes to its change events.
// Callers must Close the binding when done with it.
func Bind[T Keyed](s *Store[T]) *Binding[T] {
	b := &Binding[T]{store: s}
	b.reload()
	b.cancel = s.backend.Subscribe(func(ev storage.Event) {
		if ev.Key == s.name {
			b.reload()
		}
	})
	return b
}

func (b *Binding[T]) reload() {
	items, err := b.store.load()
	b.mu.Lock()
	b.items = items
	b.gen++
	b.lastErr = err
	b.mu.Unlock()
}

// snapshotGen returns the current reload generation. A mutation records it
// before writing to the store; if it changed by the time the optimistic
// apply runs, a reload raced the write. The raced reload (or the one still
// queued for this write's own event) carries the persisted state, so the
// local apply is skipped rather than applied on top of it twice.
func (b *Binding[T]) snapshotGen() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.gen
}

// Items returns a copy of the current snapshot in insertion order.
func (b *Binding[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cp := make([]T, len(b.items))
	copy(cp, b.items)
	return cp
}

// Err reports the error from the most recent load, if any.
func (b *Binding[T]) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastErr
}

func (b *Binding[T]) Get(id string) (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, item := range b.items {
		if item.Key() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Search returns all snapshot records satisfying pred.
func (b *Binding[T]) Search(pred func(T) bool) []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var matches []T
	for _, item := range b.items {
		if pred(item) {
			matches = append(matches, item)
		}
	}
	return matches
}

func (b *Binding[T]) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// Add persists through the store and, on success, appends to the snapshot
// without a full reload.
func (b *Binding[T]) Add(item T) bool {
	gen := b.snapshotGen()
	if !b.store.Add(item) {
		return false
	}
	b.mu.Lock()
	if b.gen == gen {
		b.items = append(b.items, item)
	}
	b.mu.Unlock()
	return true
}

// Update persists through the store and applies the same change locally.
func (b *Binding[T]) Update(id string, fn func(T) T) bool {
	gen := b.snapshotGen()
	if !b.store.Update(id, fn) {
		return false
	}
	b.mu.Lock()
	if b.gen == gen {
		for i, item := range b.items {
			if item.Key() == id {
				b.items[i] = fn(item)
				break
			}
		}
	}
	b.mu.Unlock()
	return true
}

// Remove persists through the store and drops the record locally.
func (b *Binding[T]) Remove(id string) bool {
	gen := b.snapshotGen()
	if !b.store.Delete(id) {
		return false
	}
	b.mu.Lock()
	if b.gen == gen {
		kept := b.items[:0]
		for _, item := range b.items {
			if item.Key() != id {
				kept = append(kept, item)
			}
		}
		b.items = kept
	}
	b.mu.Unlock()
	return true
}

// Close cancels the change subscription. The snapshot stays readable but
// no longer tracks the store.
func (b *Binding[T]) Close() {
	b.closeOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
	})
}
