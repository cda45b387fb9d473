package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIndexPutGetDel(t *testing.T) {
	idx := NewKeyIndex()

	idx.Put([]byte("b"), 2)
	idx.Put([]byte("a"), 1)
	idx.Put([]byte("c"), 3)
	assert.Equal(t, 3, idx.Len())

	v, ok := idx.Get([]byte("b"))
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = idx.Get([]byte("missing"))
	assert.False(t, ok)

	assert.True(t, idx.Del([]byte("b")))
	assert.False(t, idx.Del([]byte("b")))
	assert.Equal(t, 2, idx.Len())
}

func TestKeyIndexKeysAreSortedAscending(t *testing.T) {
	idx := NewKeyIndex()
	idx.Put([]byte("zebra"), nil)
	idx.Put([]byte("apple"), nil)
	idx.Put([]byte("mango"), nil)

	keys := idx.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, [][]byte{[]byte("apple"), []byte("mango"), []byte("zebra")}, keys)
}

func TestKeyIndexForEachStopsEarly(t *testing.T) {
	idx := NewKeyIndex()
	idx.Put([]byte("a"), nil)
	idx.Put([]byte("b"), nil)
	idx.Put([]byte("c"), nil)

	seen := 0
	idx.ForEach(func(key []byte, val interface{}) bool {
		seen++
		return seen < 2
	})
	assert.Equal(t, 2, seen)
}

func TestScoreIndexSetReplacesExistingScore(t *testing.T) {
	idx := NewScoreIndex()

	added := idx.Set("m", 1.0)
	assert.True(t, added)

	added = idx.Set("m", 5.0)
	assert.False(t, added)

	score, ok := idx.Score("m")
	require.True(t, ok)
	assert.Equal(t, 5.0, score)
	assert.Equal(t, 1, idx.Len())
}

func TestScoreIndexRemove(t *testing.T) {
	idx := NewScoreIndex()
	idx.Set("m", 1.0)

	assert.True(t, idx.Remove("m"))
	assert.False(t, idx.Remove("m"))
	_, ok := idx.Score("m")
	assert.False(t, ok)
}

func TestScoreIndexRankOrdersByScoreThenMember(t *testing.T) {
	idx := NewScoreIndex()
	idx.Set("b", 1)
	idx.Set("a", 1)
	idx.Set("c", 2)

	assert.Equal(t, 0, idx.Rank("a"))
	assert.Equal(t, 1, idx.Rank("b"))
	assert.Equal(t, 2, idx.Rank("c"))
	assert.Equal(t, -1, idx.Rank("missing"))
}

func TestScoreIndexRangeAndAll(t *testing.T) {
	idx := NewScoreIndex()
	idx.Set("b", 1)
	idx.Set("a", 1)
	idx.Set("c", 2)

	all := idx.All()
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Member)
	assert.Equal(t, "b", all[1].Member)
	assert.Equal(t, "c", all[2].Member)

	mid := idx.Range(1, 2)
	require.Len(t, mid, 2)
	assert.Equal(t, "b", mid[0].Member)
	assert.Equal(t, "c", mid[1].Member)

	assert.Nil(t, idx.Range(2, 1))
}
