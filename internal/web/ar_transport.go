package web

import (
	"sync"

	"github.com/umzugtech/volumescan/internal/bridge"
)

// ARTransport carries bridge messages over HTTP. The host posts its messages
// to the ingress route and polls the outbox route for commands; Deliver
// dispatches inbound messages to bridge subscribers.
type ARTransport struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(bridge.Message)
	outbox []bridge.Message
}

func NewARTransport() *ARTransport {
	return &ARTransport{subs: make(map[int]func(bridge.Message))}
}

// Send queues an outbound message for the host to collect.
func (t *ARTransport) Send(msg bridge.Message) error {
	t.mu.Lock()
	t.outbox = append(t.outbox, msg)
	t.mu.Unlock()
	return nil
}

// Subscribe registers a handler for inbound messages and returns its
// unsubscribe func.
func (t *ARTransport) Subscribe(fn func(bridge.Message)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Deliver dispatches one inbound host message to all subscribers. Handlers
// run outside the lock.
func (t *ARTransport) Deliver(msg bridge.Message) {
	t.mu.Lock()
	handlers := make([]func(bridge.Message), 0, len(t.subs))
	for _, fn := range t.subs {
		handlers = append(handlers, fn)
	}
	t.mu.Unlock()

	for _, fn := range handlers {
		fn(msg)
	}
}

// Drain returns all queued outbound messages and clears the outbox.
func (t *ARTransport) Drain() []bridge.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.outbox
	t.outbox = nil
	return out
}
