package notify

import (
	"context"
	"sync"

	"taskboard/domain"
)

// Broker wakes in-process subscribers, such as open SSE streams, after a
// change. Wake-ups coalesce: a slow subscriber sees at most one pending one.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan struct{}]struct{}
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan struct{}]struct{})}
}

// Subscribe returns a channel that receives wake-ups until Close, which
// closes it. After Close the returned channel is already closed.
func (b *Broker) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

func (b *Broker) Unsubscribe(ch chan struct{}) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Close ends every subscription so open streams return. It is safe to call
// more than once.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}

// Subscribers reports the number of open subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker) Name() string { return "broker" }

func (b *Broker) Send(context.Context, domain.Event, []byte) error {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.mu.Unlock()
	return nil
}
