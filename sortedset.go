package kuloydis

import (
	"math"
	"strconv"

	"github.com/kirov7/kuloydis/public"
)

// ScoreMember is one (score, member) pair as returned by ZRANGE or
// accepted by ZADD.
type ScoreMember struct {
	Score  float64
	Member []byte
}

func parseScore(s []byte) (float64, error) {
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return 0, public.ErrNotFloat
	}
	return f, nil
}

// ZAdd inserts or updates member scores, creating the set if absent.
// Returns the count of newly-added members; score updates to existing
// members do not count.
func (ks *Keyspace) ZAdd(key []byte, pairs []ScoreMember) (int, error) {
	r, ok := ks.getRow(key)
	if ok && r.kind != kindZSet {
		return 0, public.ErrWrongType
	}
	if !ok {
		r = newZSetRow()
		ks.putRow(key, r)
	}
	added := 0
	for _, p := range pairs {
		if math.IsNaN(p.Score) {
			return 0, public.ErrNotFloat
		}
		if r.zset.Set(string(p.Member), p.Score) {
			added++
		}
	}
	return added, nil
}

// ZRem removes each listed member if present, returning the removed
// count. The key is deleted entirely once its last member is removed.
func (ks *Keyspace) ZRem(key []byte, members [][]byte) (int, error) {
	r, ok := ks.getRow(key)
	if !ok {
		return 0, nil
	}
	if r.kind != kindZSet {
		return 0, public.ErrWrongType
	}
	removed := 0
	for _, m := range members {
		if r.zset.Remove(string(m)) {
			removed++
		}
	}
	if r.zset.Len() == 0 {
		ks.deleteRow(key)
	}
	return removed, nil
}

// ZScore returns member's score, or ok=false if absent.
func (ks *Keyspace) ZScore(key, member []byte) (float64, bool, error) {
	r, ok := ks.getRow(key)
	if !ok {
		return 0, false, nil
	}
	if r.kind != kindZSet {
		return 0, false, public.ErrWrongType
	}
	score, present := r.zset.Score(string(member))
	return score, present, nil
}

// ZRank returns member's 0-based rank under (score asc, member asc)
// ordering, or ok=false if absent.
func (ks *Keyspace) ZRank(key, member []byte) (int, bool, error) {
	r, ok := ks.getRow(key)
	if !ok {
		return 0, false, nil
	}
	if r.kind != kindZSet {
		return 0, false, public.ErrWrongType
	}
	rank := r.zset.Rank(string(member))
	if rank < 0 {
		return 0, false, nil
	}
	return rank, true, nil
}

// ZRange returns members in ascending order over the inclusive [start,
// stop] rank range, with negative-index normalization identical to
// LRANGE.
func (ks *Keyspace) ZRange(key []byte, start, stop int) ([]ScoreMember, error) {
	r, ok := ks.getRow(key)
	if !ok {
		return nil, nil
	}
	if r.kind != kindZSet {
		return nil, public.ErrWrongType
	}
	lo, hi, ok := normalizeRange(start, stop, r.zset.Len())
	if !ok {
		return []ScoreMember{}, nil
	}
	items := r.zset.Range(lo, hi)
	out := make([]ScoreMember, len(items))
	for i, it := range items {
		out[i] = ScoreMember{Score: it.Score, Member: []byte(it.Member)}
	}
	return out, nil
}

// ZCard returns the cardinality of the sorted set, 0 if absent.
func (ks *Keyspace) ZCard(key []byte) (int, error) {
	r, ok := ks.getRow(key)
	if !ok {
		return 0, nil
	}
	if r.kind != kindZSet {
		return 0, public.ErrWrongType
	}
	return r.zset.Len(), nil
}

// zsetAll is used internally by GEOSEARCH's full scan.
func (ks *Keyspace) zsetAll(key []byte) ([]ScoreMember, error) {
	r, ok := ks.getRow(key)
	if !ok {
		return nil, nil
	}
	if r.kind != kindZSet {
		return nil, public.ErrWrongType
	}
	items := r.zset.All()
	out := make([]ScoreMember, len(items))
	for i, it := range items {
		out[i] = ScoreMember{Score: it.Score, Member: []byte(it.Member)}
	}
	return out, nil
}
