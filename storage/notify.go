package storage

import "sync"

// Notifier implements the Subscribe side of Backend. Backends embed it and
// call Notify after every successful write. Events are fanned out from a
// single dispatch goroutine so subscribers observe them in publish order,
// decoupled from the writer's goroutine.
type Notifier struct {
	mu   sync.RWMutex
	seq  int
	subs map[int]func(Event)

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewNotifier() *Notifier {
	n := &Notifier{
		subs:   make(map[int]func(Event)),
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	go n.dispatch()
	return n
}

func (n *Notifier) dispatch() {
	for {
		select {
		case <-n.done:
			return
		case ev := <-n.events:
			n.mu.RLock()
			fns := make([]func(Event), 0, len(n.subs))
			for _, fn := range n.subs {
				fns = append(fns, fn)
			}
			n.mu.RUnlock()
			for _, fn := range fns {
				fn(ev)
			}
		}
	}
}

func (n *Notifier) Subscribe(fn func(Event)) (cancel func()) {
	n.mu.Lock()
	n.seq++
	id := n.seq
	n.subs[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Notify queues a change event for the named slot.
func (n *Notifier) Notify(key string) {
	select {
	case n.events <- Event{Key: key}:
	case <-n.done:
	}
}

// CloseNotifier stops the dispatch goroutine. Pending events are dropped.
func (n *Notifier) CloseNotifier() {
	n.closeOnce.Do(func() { close(n.done) })
}
