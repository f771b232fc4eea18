// Package storage defines the slot persistence port: named slots holding one
// JSON value each, plus change notifications identifying the slot that changed.
// Concrete backends live in the subpackages (memory, file, redis, postgres).
package storage

import "github.com/pkg/errors"

var ErrClosed = errors.New("storage: backend closed")

// Event signals that the named slot was written or removed.
type Event struct {
	Key string
}

type Backend interface {
	// Get returns the raw value of a slot; the bool reports whether the slot exists.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
	Keys() ([]string, error)

	// Subscribe registers fn for change events until the returned cancel
	// func is called. Delivery is asynchronous and in publish order.
	Subscribe(fn func(Event)) (cancel func())

	Close() error
}
