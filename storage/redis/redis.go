// Package redistore keeps slots in Redis and relays change events through
// Pub/Sub, so several app instances observe each other's writes the same way
// browser tabs observe storage events.
package redistore

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/madrasa-app/madrasa/storage"
)

const (
	slotPrefix   = "slot:"
	eventChannel = "madrasa:slot-events"
)

type backend struct {
	*storage.Notifier

	client     *redis.Client
	instanceID string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ storage.Backend = (*backend)(nil)

func New(addr string, db int) (storage.Backend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithCancel(context.Background())

	if err := client.Ping(ctx).Err(); err != nil {
		cancel()
		return nil, errors.Wrap(err, "pinging redis")
	}

	b := &backend{
		Notifier:   storage.NewNotifier(),
		client:     client,
		instanceID: uuid.New().String(),
		ctx:        ctx,
		cancel:     cancel,
	}

	sub := client.Subscribe(ctx, eventChannel)
	b.wg.Add(1)
	go b.relay(sub)

	return b, nil
}

// relay turns remote Pub/Sub messages into local change events,
// skipping the ones this instance published itself.
func (b *backend) relay(sub *redis.PubSub) {
	defer b.wg.Done()
	defer sub.Close()

	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			origin, key, found := strings.Cut(msg.Payload, "|")
			if !found || origin == b.instanceID {
				continue
			}
			b.Notify(key)
		}
	}
}

func (b *backend) publish(key string) {
	if err := b.client.Publish(b.ctx, eventChannel, b.instanceID+"|"+key).Err(); err == nil {
		return
	}
	// remote fan-out failed; local subscribers still get the event below
}

func (b *backend) Get(key string) ([]byte, bool, error) {
	if b.isClosed() {
		return nil, false, storage.ErrClosed
	}
	val, err := b.client.Get(b.ctx, slotPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "reading slot")
	}
	return val, true, nil
}

func (b *backend) Set(key string, value []byte) error {
	if b.isClosed() {
		return storage.ErrClosed
	}
	if err := b.client.Set(b.ctx, slotPrefix+key, value, 0).Err(); err != nil {
		return errors.Wrap(err, "writing slot")
	}
	b.publish(key)
	b.Notify(key)
	return nil
}

func (b *backend) Remove(key string) error {
	if b.isClosed() {
		return storage.ErrClosed
	}
	if err := b.client.Del(b.ctx, slotPrefix+key).Err(); err != nil {
		return errors.Wrap(err, "removing slot")
	}
	b.publish(key)
	b.Notify(key)
	return nil
}

func (b *backend) Keys() ([]string, error) {
	if b.isClosed() {
		return nil, storage.ErrClosed
	}
	raw, err := b.client.Keys(b.ctx, slotPrefix+"*").Result()
	if err != nil {
		return nil, errors.Wrap(err, "listing slots")
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, slotPrefix))
	}
	return keys, nil
}

func (b *backend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	b.CloseNotifier()
	return b.client.Close()
}
