// Package kuloydis implements the multi-type in-memory keyspace at the
// heart of the server: strings, lists, streams and sorted
// sets under a single mutex, with lazy TTL expiration and blocking-aware
// list/stream mutations.
package kuloydis

import (
	"sync"
	"time"

	"github.com/kirov7/kuloydis/blocker"
	"github.com/kirov7/kuloydis/meta"
)

// Keyspace is one Redis-style logical database. A server holds
// public.NumDatabases of these, selected per-connection by SELECT.
type Keyspace struct {
	mu      sync.Mutex
	idx     *meta.KeyIndex
	blocker *blocker.Table
	ttl     *ttlSweeper
}

func NewKeyspace() *Keyspace {
	ks := &Keyspace{
		idx:     meta.NewKeyIndex(),
		blocker: blocker.NewTable(),
	}
	ks.ttl = newTTLSweeper(ks.expireIfDue)
	go ks.ttl.start()
	return ks
}

// Close stops the background TTL sweeper. It does not clear the keyspace.
func (ks *Keyspace) Close() {
	ks.ttl.stop()
}

// Blocker exposes the park/wake table so the dispatcher's BLPOP/XREAD
// handlers can park the issuing session outside the keyspace mutex.
func (ks *Keyspace) Blocker() *blocker.Table {
	return ks.blocker
}

// Lock/Unlock are the keyspace-wide mutex: every method below
// that reads or writes a row assumes the caller already holds it. The
// dispatcher acquires it once per command, or once for an entire
// MULTI/EXEC batch, so a transaction's queued commands run as one
// uninterrupted critical section.
func (ks *Keyspace) Lock()   { ks.mu.Lock() }
func (ks *Keyspace) Unlock() { ks.mu.Unlock() }

func nowMillis() int64 { return time.Now().UnixMilli() }

// getRow returns the row for key if present and not expired, applying
// lazy deletion when it is. Caller must hold ks.mu.
func (ks *Keyspace) getRow(key []byte) (*row, bool) {
	v, ok := ks.idx.Get(key)
	if !ok {
		return nil, false
	}
	r := v.(*row)
	if r.expireAt != 0 && nowMillis() >= r.expireAt {
		ks.idx.Del(key)
		ks.ttl.del(string(key))
		return nil, false
	}
	return r, true
}

// expireIfDue is the sweeper's deleter callback: it takes the keyspace
// lock itself and only removes the key if it is still present and still
// expired (the sweep can race a client overwriting the key).
func (ks *Keyspace) expireIfDue(key string) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	v, ok := ks.idx.Get([]byte(key))
	if !ok {
		return
	}
	r := v.(*row)
	if r.expireAt != 0 && nowMillis() >= r.expireAt {
		ks.idx.Del([]byte(key))
	}
}

func (ks *Keyspace) putRow(key []byte, r *row) {
	ks.idx.Put(key, r)
}

func (ks *Keyspace) deleteRow(key []byte) {
	ks.idx.Del(key)
	ks.ttl.del(string(key))
}

// setExpireAtMs installs an absolute expiration and registers it with the
// sweeper. atMs <= 0 clears any TTL.
func (ks *Keyspace) setExpireAtMs(key []byte, r *row, atMs int64) {
	r.expireAt = atMs
	if atMs <= 0 {
		ks.ttl.del(string(key))
		return
	}
	ks.ttl.add(string(key), time.UnixMilli(atMs))
}

// Del removes key unconditionally. Returns true if it existed. Caller
// must hold ks.mu.
func (ks *Keyspace) Del(key []byte) bool {
	_, ok := ks.getRow(key)
	if !ok {
		return false
	}
	ks.deleteRow(key)
	return true
}

// Exists reports whether key is present and unexpired. Caller must hold ks.mu.
func (ks *Keyspace) Exists(key []byte) bool {
	_, ok := ks.getRow(key)
	return ok
}

// Type returns the row's kind name, or "none" if absent. Caller must hold ks.mu.
func (ks *Keyspace) Type(key []byte) string {
	r, ok := ks.getRow(key)
	if !ok {
		return "none"
	}
	return r.kind.String()
}

// Keys returns every unexpired key matching pattern.
// Caller must hold ks.mu.
func (ks *Keyspace) Keys(pattern []byte) [][]byte {
	var out [][]byte
	for _, key := range ks.idx.Keys() {
		if _, ok := ks.getRow(key); !ok {
			continue
		}
		if globMatch(pattern, key) {
			out = append(out, key)
		}
	}
	return out
}
