package kuloydis

import (
	"container/list"

	"github.com/kirov7/kuloydis/public"
)

// Push appends (right=true) or prepends (right=false) elements to key's
// list in argument order, creating the list if absent. LPUSH reverses
// observable order because each element is pushed as the new head.
// Every successful push wakes blocked BLPOP waiters on key,
// synchronously, while the caller still holds ks.mu: the
// mutating operation drains parked consumers before another command can
// observe the new elements. Caller must hold ks.mu.
func (ks *Keyspace) Push(key []byte, right bool, elems [][]byte) (int, error) {
	r, ok := ks.getRow(key)
	if ok && r.kind != kindList {
		return 0, public.ErrWrongType
	}
	if !ok {
		r = newListRow()
		ks.putRow(key, r)
	}
	for _, e := range elems {
		v := append([]byte(nil), e...)
		if right {
			r.list.PushBack(v)
		} else {
			r.list.PushFront(v)
		}
	}
	n := r.list.Len()

	ks.blocker.DrainList(string(key), func() ([]byte, bool) {
		row, ok := ks.getRow(key)
		if !ok || row.kind != kindList || row.list.Len() == 0 {
			return nil, false
		}
		front := row.list.Front()
		row.list.Remove(front)
		if row.list.Len() == 0 {
			ks.deleteRow(key)
		}
		return front.Value.([]byte), true
	})

	return n, nil
}

// Pop removes and returns the head (left=true) or tail element of key's
// list, or ok=false if absent. Backs both LPOP and RPOP. Caller must
// hold ks.mu.
func (ks *Keyspace) Pop(key []byte, left bool) ([]byte, bool, error) {
	r, ok := ks.getRow(key)
	if !ok {
		return nil, false, nil
	}
	if r.kind != kindList {
		return nil, false, public.ErrWrongType
	}
	var el *list.Element
	if left {
		el = r.list.Front()
	} else {
		el = r.list.Back()
	}
	if el == nil {
		return nil, false, nil
	}
	r.list.Remove(el)
	if r.list.Len() == 0 {
		ks.deleteRow(key)
	}
	return el.Value.([]byte), true, nil
}

// TryPopFront attempts a non-blocking BLPOP-style pop across keys in
// order, returning the first key with a non-empty list and its popped
// head element. Caller
// must hold ks.mu.
func (ks *Keyspace) TryPopFront(keys [][]byte) (key string, value []byte, ok bool, err error) {
	for _, k := range keys {
		r, present := ks.getRow(k)
		if !present {
			continue
		}
		if r.kind != kindList {
			return "", nil, false, public.ErrWrongType
		}
		if r.list.Len() == 0 {
			continue
		}
		front := r.list.Front()
		r.list.Remove(front)
		if r.list.Len() == 0 {
			ks.deleteRow(k)
		}
		return string(k), front.Value.([]byte), true, nil
	}
	return "", nil, false, nil
}

// Range returns the inclusive LRANGE slice [start, stop] with negative
// indices normalized. Caller must hold ks.mu.
func (ks *Keyspace) Range(key []byte, start, stop int) ([][]byte, error) {
	r, ok := ks.getRow(key)
	if !ok {
		return nil, nil
	}
	if r.kind != kindList {
		return nil, public.ErrWrongType
	}
	lo, hi, ok := normalizeRange(start, stop, r.list.Len())
	if !ok {
		return [][]byte{}, nil
	}
	out := make([][]byte, 0, hi-lo+1)
	i := 0
	for e := r.list.Front(); e != nil; e = e.Next() {
		if i > hi {
			break
		}
		if i >= lo {
			out = append(out, e.Value.([]byte))
		}
		i++
	}
	return out, nil
}

// Len returns the list length, 0 if absent. Caller must hold ks.mu.
func (ks *Keyspace) Len(key []byte) (int, error) {
	r, ok := ks.getRow(key)
	if !ok {
		return 0, nil
	}
	if r.kind != kindList {
		return 0, public.ErrWrongType
	}
	return r.list.Len(), nil
}
