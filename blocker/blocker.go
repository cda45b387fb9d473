// Package blocker parks and wakes sessions suspended on blocking commands
// (BLPOP, XREAD BLOCK). A waiter is registered while the caller still
// holds the keyspace mutex; wake is a message-passing step into the
// waiter's channel, never a reentrant call into session code.
package blocker

import "sync"

// ListWake is what a BLPOP-style waiter receives: the key that produced a
// value and the value itself.
type ListWake struct {
	Key   string
	Value []byte
}

// Waiter is one parked session. Exactly one of Result (list wake) or
// StreamResult (stream wake) channel is ever used by a given waiter,
// depending on which Park method created it.
type Waiter struct {
	keys         []string
	Result       chan ListWake
	StreamResult chan struct{}
}

// Table holds the park-sets for both blocking styles. One Table is shared
// by every connection against a given keyspace.
type Table struct {
	mu     sync.Mutex
	lists  map[string][]*Waiter
	stream map[string][]*Waiter
}

func NewTable() *Table {
	return &Table{
		lists:  make(map[string][]*Waiter),
		stream: make(map[string][]*Waiter),
	}
}

// ParkList registers a BLPOP-style waiter across every listed key, FIFO
// within each key's queue. Caller must hold the keyspace mutex when
// calling this and release it only after Park returns.
func (t *Table) ParkList(keys []string) *Waiter {
	w := &Waiter{keys: keys, Result: make(chan ListWake, 1)}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		t.lists[k] = append(t.lists[k], w)
	}
	return w
}

// CancelList removes w from every key queue it was registered under. Safe
// to call after a timeout or disconnect even if w was already woken (the
// removal becomes a no-op).
func (t *Table) CancelList(w *Waiter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range w.keys {
		t.lists[k] = removeWaiter(t.lists[k], w)
		if len(t.lists[k]) == 0 {
			delete(t.lists, k)
		}
	}
}

// DrainList is called by LPUSH/RPUSH, still holding the keyspace mutex,
// immediately after key gained one or more new elements. It wakes parked
// BLPOP waiters on key in FIFO arrival order, calling pop once per wake;
// it stops as soon as pop reports no more elements or no waiters remain.
func (t *Table) DrainList(key string, pop func() ([]byte, bool)) {
	for {
		t.mu.Lock()
		queue := t.lists[key]
		if len(queue) == 0 {
			t.mu.Unlock()
			return
		}
		w := queue[0]
		t.lists[key] = queue[1:]
		if len(t.lists[key]) == 0 {
			delete(t.lists, key)
		}
		t.mu.Unlock()

		value, ok := pop()
		if !ok {
			// Nothing left to hand out; put the waiter back at the front
			// of its queue and stop.
			t.mu.Lock()
			t.lists[key] = append([]*Waiter{w}, t.lists[key]...)
			t.mu.Unlock()
			return
		}
		// w may also be registered on other keys; remove it there too so
		// it is not woken twice.
		t.removeFromOtherKeys(w, key)
		w.Result <- ListWake{Key: key, Value: value}
	}
}

func (t *Table) removeFromOtherKeys(w *Waiter, except string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range w.keys {
		if k == except {
			continue
		}
		t.lists[k] = removeWaiter(t.lists[k], w)
		if len(t.lists[k]) == 0 {
			delete(t.lists, k)
		}
	}
}

// ParkStream registers an XREAD BLOCK waiter across every listed stream
// key. Unlike ParkList this is non-destructive: every waiter parked on a
// key is woken, not just the first.
func (t *Table) ParkStream(keys []string) *Waiter {
	w := &Waiter{keys: keys, StreamResult: make(chan struct{}, 1)}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		t.stream[k] = append(t.stream[k], w)
	}
	return w
}

func (t *Table) CancelStream(w *Waiter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range w.keys {
		t.stream[k] = removeWaiter(t.stream[k], w)
		if len(t.stream[k]) == 0 {
			delete(t.stream, k)
		}
	}
}

// WakeStream is called by XADD, still holding the keyspace mutex, after
// key gained a new entry. Every waiter parked on key is signalled once and
// removed from every key it was registered under.
func (t *Table) WakeStream(key string) {
	t.mu.Lock()
	queue := t.stream[key]
	delete(t.stream, key)
	t.mu.Unlock()

	seen := make(map[*Waiter]bool, len(queue))
	for _, w := range queue {
		if seen[w] {
			continue
		}
		seen[w] = true
		t.removeFromOtherStreamKeys(w, key)
		select {
		case w.StreamResult <- struct{}{}:
		default:
		}
	}
}

func (t *Table) removeFromOtherStreamKeys(w *Waiter, except string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range w.keys {
		if k == except {
			continue
		}
		t.stream[k] = removeWaiter(t.stream[k], w)
		if len(t.stream[k]) == 0 {
			delete(t.stream, k)
		}
	}
}

func removeWaiter(queue []*Waiter, target *Waiter) []*Waiter {
	out := queue[:0]
	for _, w := range queue {
		if w != target {
			out = append(out, w)
		}
	}
	return out
}
