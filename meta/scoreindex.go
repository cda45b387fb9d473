package meta

import (
	"sync"

	"github.com/google/btree"
)

// ScoreItem is one (member, score) pair stored in a ScoreIndex, ordered by
// score ascending and then member lexicographically, the ordering
// ZRANGE/ZRANK require.
type ScoreItem struct {
	Member string
	Score  float64
}

func (a ScoreItem) Less(than btree.Item) bool {
	b := than.(ScoreItem)
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Member < b.Member
}

// ScoreIndex is a sorted set's (score, member) ordering, backed by
// google/btree.
type ScoreIndex struct {
	lock *sync.RWMutex
	tree *btree.BTree
	byMember map[string]float64
}

func NewScoreIndex() *ScoreIndex {
	return &ScoreIndex{
		lock:     new(sync.RWMutex),
		tree:     btree.New(32),
		byMember: make(map[string]float64),
	}
}

// Set inserts member with score, replacing any previous score for that
// member. Returns true if member is new.
func (s *ScoreIndex) Set(member string, score float64) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	old, existed := s.byMember[member]
	if existed {
		s.tree.Delete(ScoreItem{Member: member, Score: old})
	}
	s.tree.ReplaceOrInsert(ScoreItem{Member: member, Score: score})
	s.byMember[member] = score
	return !existed
}

func (s *ScoreIndex) Score(member string) (float64, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	score, ok := s.byMember[member]
	return score, ok
}

// Remove deletes member. Returns true if it was present.
func (s *ScoreIndex) Remove(member string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	score, ok := s.byMember[member]
	if !ok {
		return false
	}
	s.tree.Delete(ScoreItem{Member: member, Score: score})
	delete(s.byMember, member)
	return true
}

func (s *ScoreIndex) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.tree.Len()
}

// Rank returns the 0-based ascending rank of member, or -1 if absent.
func (s *ScoreIndex) Rank(member string) int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	score, ok := s.byMember[member]
	if !ok {
		return -1
	}
	rank := 0
	target := ScoreItem{Member: member, Score: score}
	s.tree.Ascend(func(i btree.Item) bool {
		if i.(ScoreItem) == target {
			return false
		}
		rank++
		return true
	})
	return rank
}

// Range returns the members in ascending order over inclusive rank indices
// [start, stop], both already normalized/clamped by the caller.
func (s *ScoreIndex) Range(start, stop int) []ScoreItem {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if start > stop {
		return nil
	}
	out := make([]ScoreItem, 0, stop-start+1)
	i := 0
	s.tree.Ascend(func(it btree.Item) bool {
		if i > stop {
			return false
		}
		if i >= start {
			out = append(out, it.(ScoreItem))
		}
		i++
		return true
	})
	return out
}

// All returns every (member, score) pair in ascending order.
func (s *ScoreIndex) All() []ScoreItem {
	s.lock.RLock()
	defer s.lock.RUnlock()

	out := make([]ScoreItem, 0, s.tree.Len())
	s.tree.Ascend(func(it btree.Item) bool {
		out = append(out, it.(ScoreItem))
		return true
	})
	return out
}
