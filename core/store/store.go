// Package store implements a generic keyed collection persisted to a single
// storage slot as a JSON array. Records keep insertion order; every mutation
// rewrites the whole slot. Persistence faults are logged and reported as a
// false return, never as an error value, so callers stay total.
package store

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/core"
	"github.com/madrasa-app/madrasa/storage"
)

// Keyed is any record with a unique string key within its collection.
type Keyed interface {
	Key() string
}

type Store[T Keyed] struct {
	name    string
	backend storage.Backend
	log     core.Logger
}

func New[T Keyed](name string, backend storage.Backend, log core.Logger) *Store[T] {
	if log == nil {
		log = core.NopLogger{}
	}
	return &Store[T]{name: name, backend: backend, log: log}
}

// Name returns the slot this collection is persisted under.
func (s *Store[T]) Name() string { return s.name }

// load reads and decodes the collection. Bindings use it to surface the
// last load error; everything else goes through GetAll.
func (s *Store[T]) load() ([]T, error) {
	raw, ok, err := s.backend.Get(s.name)
	if err != nil {
		return nil, errors.Wrapf(err, "reading collection %q", s.name)
	}
	if !ok {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(err, "decoding collection %q", s.name)
	}
	return items, nil
}

// GetAll returns all records in insertion order. A corrupt or unreadable
// slot yields an empty collection and a log entry.
func (s *Store[T]) GetAll() []T {
	items, err := s.load()
	if err != nil {
		s.log.Error("loading collection", err)
		return nil
	}
	return items
}

func (s *Store[T]) GetByID(id string) (T, bool) {
	for _, item := range s.GetAll() {
		if item.Key() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Add appends a record. A record whose key is already present is rejected.
func (s *Store[T]) Add(item T) bool {
	items := s.GetAll()
	for _, existing := range items {
		if existing.Key() == item.Key() {
			s.log.Warn("duplicate key in collection " + s.name + ": " + item.Key())
			return false
		}
	}
	return s.persist(append(items, item))
}

// Update applies fn to the record with the given key and persists the result.
// Returns false when no record matches or persistence fails.
func (s *Store[T]) Update(id string, fn func(T) T) bool {
	items := s.GetAll()
	for i, item := range items {
		if item.Key() == id {
			items[i] = fn(item)
			return s.persist(items)
		}
	}
	return false
}

// Patch shallow-merges the given fields (JSON names) into the matching
// record: listed fields overwrite, everything else is retained. The key
// field itself cannot be patched.
func (s *Store[T]) Patch(id string, fields map[string]interface{}) bool {
	items := s.GetAll()
	for i, item := range items {
		if item.Key() != id {
			continue
		}
		raw, err := json.Marshal(item)
		if err != nil {
			s.log.Error("encoding record for patch", err)
			return false
		}
		var rec map[string]interface{}
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.log.Error("decoding record for patch", err)
			return false
		}
		for k, v := range fields {
			if k == "id" {
				continue
			}
			rec[k] = v
		}
		merged, err := json.Marshal(rec)
		if err != nil {
			s.log.Error("encoding patched record", err)
			return false
		}
		var updated T
		if err := json.Unmarshal(merged, &updated); err != nil {
			s.log.Error("decoding patched record", err)
			return false
		}
		items[i] = updated
		return s.persist(items)
	}
	return false
}

// Delete removes the record with the given key. It reports persistence
// success only: deleting an absent key is not an error.
func (s *Store[T]) Delete(id string) bool {
	items := s.GetAll()
	kept := items[:0]
	for _, item := range items {
		if item.Key() != id {
			kept = append(kept, item)
		}
	}
	return s.persist(kept)
}

// Search returns all records satisfying pred, in collection order.
func (s *Store[T]) Search(pred func(T) bool) []T {
	var matches []T
	for _, item := range s.GetAll() {
		if pred(item) {
			matches = append(matches, item)
		}
	}
	return matches
}

// Clear removes the whole collection slot.
func (s *Store[T]) Clear() bool {
	if err := s.backend.Remove(s.name); err != nil {
		s.log.Error("clearing collection", err)
		return false
	}
	return true
}

func (s *Store[T]) Count() int {
	return len(s.GetAll())
}

func (s *Store[T]) persist(items []T) bool {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		s.log.Error("encoding collection", err)
		return false
	}
	if err := s.backend.Set(s.name, raw); err != nil {
		s.log.Error("persisting collection", err)
		return false
	}
	return true
}
