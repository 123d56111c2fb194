package live

import (
	"sync"
	"testing"
)

func TestMemoryBrokerDelivers(t *testing.T) {
	b := NewMemoryBroker()

	var mu sync.Mutex
	var got []string
	sub := b.Subscribe("room:1", func(payload []byte) {
		mu.Lock()
		got = append(got, string(payload))
		mu.Unlock()
	})
	defer sub.Cancel()

	b.Publish("room:1", []byte("m1"))
	b.Publish("room:2", []byte("other topic"))
	b.Publish("room:1", []byte("m2"))

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "m1" || got[1] != "m2" {
		t.Errorf("delivered = %v, want [m1 m2]", got)
	}
}

func TestMemoryBrokerCancel(t *testing.T) {
	b := NewMemoryBroker()

	calls := 0
	sub := b.Subscribe("t", func([]byte) { calls++ })

	if n := b.HandlerCount("t"); n != 1 {
		t.Fatalf("handler count = %d, want 1", n)
	}

	sub.Cancel()
	sub.Cancel() // idempotent

	if n := b.HandlerCount("t"); n != 0 {
		t.Errorf("handler count after cancel = %d, want 0", n)
	}
	b.Publish("t", nil)
	if calls != 0 {
		t.Errorf("handler called %d times after cancel", calls)
	}
}

func TestMemoryBrokerIndependentSubscriptions(t *testing.T) {
	b := NewMemoryBroker()

	first, second := 0, 0
	s1 := b.Subscribe("t", func([]byte) { first++ })
	s2 := b.Subscribe("t", func([]byte) { second++ })
	defer s2.Cancel()

	b.Publish("t", nil)
	s1.Cancel()
	b.Publish("t", nil)

	if first != 1 {
		t.Errorf("first handler calls = %d, want 1", first)
	}
	if second != 2 {
		t.Errorf("second handler calls = %d, want 2", second)
	}
}

func TestMemoryBrokerHandlerMayResubscribe(t *testing.T) {
	b := NewMemoryBroker()

	// A handler that touches the broker must not deadlock.
	done := make(chan struct{})
	sub := b.Subscribe("t", func([]byte) {
		inner := b.Subscribe("t2", func([]byte) {})
		inner.Cancel()
		close(done)
	})
	defer sub.Cancel()

	b.Publish("t", nil)
	<-done
}
