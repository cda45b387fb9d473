package kuloydis

import (
	"strconv"

	"github.com/kirov7/kuloydis/public"
)

// Get returns the string value of key, or ok=false if absent/expired.
// Caller must hold ks.mu.
func (ks *Keyspace) Get(key []byte) ([]byte, bool, error) {
	r, ok := ks.getRow(key)
	if !ok {
		return nil, false, nil
	}
	if r.kind != kindString {
		return nil, false, public.ErrWrongType
	}
	return r.str, true, nil
}

// Set stores value under key as a string, replacing any prior value of
// any shape. expireAtMs of 0 clears any TTL; otherwise it is an absolute
// unix-millisecond deadline, as set by SET's EX/PX options.
func (ks *Keyspace) Set(key, value []byte, expireAtMs int64) {
	r := newStringRow(append([]byte(nil), value...))
	ks.putRow(key, r)
	if expireAtMs > 0 {
		ks.setExpireAtMs(key, r, expireAtMs)
	} else {
		ks.ttl.del(string(key))
	}
}

// SetNX sets key only if absent. Returns true if it was set.
func (ks *Keyspace) SetNX(key, value []byte) bool {
	if _, ok := ks.getRow(key); ok {
		return false
	}
	ks.putRow(key, newStringRow(append([]byte(nil), value...)))
	return true
}

// GetSet atomically replaces key's string value and returns the old one.
func (ks *Keyspace) GetSet(key, value []byte) ([]byte, bool, error) {
	r, existed := ks.getRow(key)
	var old []byte
	if existed {
		if r.kind != kindString {
			return nil, false, public.ErrWrongType
		}
		old = r.str
	}
	ks.putRow(key, newStringRow(append([]byte(nil), value...)))
	ks.ttl.del(string(key))
	return old, existed, nil
}

// StrLen returns len(value) for a string key, 0 if absent.
func (ks *Keyspace) StrLen(key []byte) (int, error) {
	r, ok := ks.getRow(key)
	if !ok {
		return 0, nil
	}
	if r.kind != kindString {
		return 0, public.ErrWrongType
	}
	return len(r.str), nil
}

// Incr parses the current string as a signed 64-bit decimal, adds 1, and
// stores the result formatted without leading zeros. A missing key
// behaves as if it held "0".
func (ks *Keyspace) Incr(key []byte) (int64, error) {
	r, ok := ks.getRow(key)
	var n int64
	if ok {
		if r.kind != kindString {
			return 0, public.ErrWrongType
		}
		parsed, err := strconv.ParseInt(string(r.str), 10, 64)
		if err != nil {
			return 0, public.ErrNotInteger
		}
		n = parsed
	}
	if n == 1<<63-1 {
		return 0, public.ErrNotInteger
	}
	n++
	if ok {
		r.str = []byte(strconv.FormatInt(n, 10))
	} else {
		ks.putRow(key, newStringRow([]byte(strconv.FormatInt(n, 10))))
	}
	return n, nil
}
