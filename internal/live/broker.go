// Package live provides push-based change notification. A publisher writes
// to a topic; every open subscription on that topic gets the payload. The
// messaging core uses topics as invalidation signals and re-reads the store
// on each one, so delivery is at-least-once and payloads carry no state the
// reader depends on.
package live

import "sync"

type Handler func(payload []byte)

type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, h Handler) *Subscription
}

// Subscription is a cancellation handle for one live subscription. Cancel
// is safe to call more than once; only the first call releases anything.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// MemoryBroker dispatches within the process. Handlers run on the
// publisher's goroutine, outside the broker lock, so a handler may publish
// or subscribe without deadlocking.
type MemoryBroker struct {
	mu     sync.Mutex
	nextID int
	topics map[string]map[int]Handler
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]map[int]Handler)}
}

func (b *MemoryBroker) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.topics[topic]))
	for _, h := range b.topics[topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(topic string, h Handler) *Subscription {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[int]Handler)
	}
	b.topics[topic][id] = h
	b.mu.Unlock()

	return NewSubscription(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.topics[topic], id)
		if len(b.topics[topic]) == 0 {
			delete(b.topics, topic)
		}
	})
}

// HandlerCount reports open subscriptions on a topic. Used by leak checks.
func (b *MemoryBroker) HandlerCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}
