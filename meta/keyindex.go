// Package meta holds the ordered index structures backing the keyspace: an
// adaptive radix tree over raw keys and a B-tree over sorted-set members.
package meta

import (
	"sort"
	"sync"

	art "github.com/plar/go-adaptive-radix-tree"
)

// KeyIndex is the keyspace's top-level key->row index. It is ordered, which
// lets KEYS and snapshot iteration walk keys deterministically instead of
// relying on Go's randomized map iteration order.
type KeyIndex struct {
	lock *sync.RWMutex
	tree art.Tree
}

func NewKeyIndex() *KeyIndex {
	return &KeyIndex{
		lock: new(sync.RWMutex),
		tree: art.New(),
	}
}

// Put inserts or replaces the row stored under key. val is an opaque
// pointer owned by the caller (the keyspace's *row).
func (k *KeyIndex) Put(key []byte, val interface{}) {
	k.lock.Lock()
	defer k.lock.Unlock()
	k.tree.Insert(key, val)
}

func (k *KeyIndex) Get(key []byte) (interface{}, bool) {
	k.lock.RLock()
	defer k.lock.RUnlock()
	return k.tree.Search(key)
}

func (k *KeyIndex) Del(key []byte) bool {
	k.lock.Lock()
	defer k.lock.Unlock()
	_, deleted := k.tree.Delete(key)
	return deleted
}

func (k *KeyIndex) Len() int {
	k.lock.RLock()
	defer k.lock.RUnlock()
	return k.tree.Size()
}

// ForEach walks every key in ascending byte order, calling fn(key, val).
// Stops early if fn returns false. fn must not mutate the index.
func (k *KeyIndex) ForEach(fn func(key []byte, val interface{}) bool) {
	k.lock.RLock()
	defer k.lock.RUnlock()

	k.tree.ForEach(func(node art.Node) bool {
		return fn(node.Key(), node.Value())
	})
}

// Keys returns a sorted snapshot of all keys currently indexed, used by
// KEYS and by the snapshot writer.
func (k *KeyIndex) Keys() [][]byte {
	k.lock.RLock()
	defer k.lock.RUnlock()

	out := make([][]byte, 0, k.tree.Size())
	k.tree.ForEach(func(node art.Node) bool {
		out = append(out, node.Key())
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return string(out[i]) < string(out[j])
	})
	return out
}
