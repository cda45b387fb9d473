package kuloydis

import (
	"testing"
	"time"

	"github.com/kirov7/kuloydis/public"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSetGetIncr(t *testing.T) {
	ks := NewKeyspace()
	defer ks.Close()
	ks.Lock()
	defer ks.Unlock()

	ks.Set([]byte("k"), []byte("v"), 0)
	v, ok, err := ks.Get([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	n, err := ks.Incr([]byte("counter"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = ks.Incr([]byte("counter"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = ks.Incr([]byte("k"))
	assert.Equal(t, public.ErrNotInteger, err)
}

func TestStringExpiresLazily(t *testing.T) {
	ks := NewKeyspace()
	defer ks.Close()

	ks.Lock()
	ks.Set([]byte("k"), []byte("v"), time.Now().UnixMilli()+10)
	ks.Unlock()

	time.Sleep(30 * time.Millisecond)

	ks.Lock()
	_, ok, err := ks.Get([]byte("k"))
	ks.Unlock()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListPushPopRange(t *testing.T) {
	ks := NewKeyspace()
	defer ks.Close()
	ks.Lock()
	defer ks.Unlock()

	n, err := ks.Push([]byte("l"), true, [][]byte{[]byte("a"), []byte("b")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = ks.Push([]byte("l"), false, [][]byte{[]byte("z")})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	items, err := ks.Range([]byte("l"), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("z"), []byte("a"), []byte("b")}, items)

	v, ok, err := ks.Pop([]byte("l"), true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "z", string(v))
}

func TestTryPopFrontAcrossKeys(t *testing.T) {
	ks := NewKeyspace()
	defer ks.Close()
	ks.Lock()
	defer ks.Unlock()

	_, _, ok, err := ks.TryPopFront([][]byte{[]byte("missing1"), []byte("missing2")})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ks.Push([]byte("l2"), true, [][]byte{[]byte("only")})
	require.NoError(t, err)

	key, val, ok, err := ks.TryPopFront([][]byte{[]byte("l1"), []byte("l2")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "l2", key)
	assert.Equal(t, "only", string(val))
}

func TestXAddAutoIDsAreMonotonic(t *testing.T) {
	ks := NewKeyspace()
	defer ks.Close()
	ks.Lock()
	defer ks.Unlock()

	id1, err := ks.XAdd([]byte("s"), "*", [][2][]byte{{[]byte("f"), []byte("1")}})
	require.NoError(t, err)

	id2, err := ks.XAdd([]byte("s"), "*", [][2][]byte{{[]byte("f"), []byte("2")}})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	_, err = ks.XAdd([]byte("s"), "0-0", nil)
	assert.Equal(t, public.ErrStreamIDZero, err)

	entries, err := ks.XRange([]byte("s"), "-", "+")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, id1, entries[0].ID)
	assert.Equal(t, id2, entries[1].ID)
}

func TestXAddRejectsNonIncreasingID(t *testing.T) {
	ks := NewKeyspace()
	defer ks.Close()
	ks.Lock()
	defer ks.Unlock()

	_, err := ks.XAdd([]byte("s"), "5-0", nil)
	require.NoError(t, err)

	_, err = ks.XAdd([]byte("s"), "5-0", nil)
	assert.Equal(t, public.ErrStreamID, err)

	_, err = ks.XAdd([]byte("s"), "4-9", nil)
	assert.Equal(t, public.ErrStreamID, err)
}

func TestXReadOneReturnsEntriesAfterBaseline(t *testing.T) {
	ks := NewKeyspace()
	defer ks.Close()
	ks.Lock()
	defer ks.Unlock()

	_, err := ks.XAdd([]byte("s"), "1-1", nil)
	require.NoError(t, err)
	_, err = ks.XAdd([]byte("s"), "2-1", nil)
	require.NoError(t, err)

	entries, err := ks.XReadOne([]byte("s"), "1-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2-1", entries[0].ID)
}

func TestZAddZRankTiesBreakOnMember(t *testing.T) {
	ks := NewKeyspace()
	defer ks.Close()
	ks.Lock()
	defer ks.Unlock()

	_, err := ks.ZAdd([]byte("z"), []ScoreMember{
		{Score: 1, Member: []byte("b")},
		{Score: 1, Member: []byte("a")},
		{Score: 2, Member: []byte("c")},
	})
	require.NoError(t, err)

	items, err := ks.ZRange([]byte("z"), 0, -1)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "a", string(items[0].Member))
	assert.Equal(t, "b", string(items[1].Member))
	assert.Equal(t, "c", string(items[2].Member))

	rank, ok, err := ks.ZRank([]byte("z"), []byte("c"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, rank)
}

func TestZAddSecondCallDoesNotCountAsAdded(t *testing.T) {
	ks := NewKeyspace()
	defer ks.Close()
	ks.Lock()
	defer ks.Unlock()

	n, err := ks.ZAdd([]byte("z"), []ScoreMember{{Score: 1, Member: []byte("a")}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = ks.ZAdd([]byte("z"), []ScoreMember{{Score: 2, Member: []byte("a")}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	score, ok, err := ks.ZScore([]byte("z"), []byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2.0, score)
}

func TestGeoAddDistAndSearch(t *testing.T) {
	ks := NewKeyspace()
	defer ks.Close()
	ks.Lock()
	defer ks.Unlock()

	_, err := ks.GeoAdd([]byte("geo"), 13.361389, 38.115556, []byte("Palermo"))
	require.NoError(t, err)
	_, err = ks.GeoAdd([]byte("geo"), 15.087269, 37.502669, []byte("Catania"))
	require.NoError(t, err)

	dist, ok, err := ks.GeoDist([]byte("geo"), []byte("Palermo"), []byte("Catania"), "km")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 166.27, dist, 1.0)

	results, err := ks.GeoSearch([]byte("geo"), 15, 37, 200_000)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Catania", string(results[0].Member))
	assert.Equal(t, "Palermo", string(results[1].Member))
}

func TestWrongTypeErrors(t *testing.T) {
	ks := NewKeyspace()
	defer ks.Close()
	ks.Lock()
	defer ks.Unlock()

	ks.Set([]byte("k"), []byte("v"), 0)
	_, err := ks.Push([]byte("k"), true, [][]byte{[]byte("x")})
	assert.Equal(t, public.ErrWrongType, err)

	_, _, err = ks.ZScore([]byte("k"), []byte("m"))
	assert.Equal(t, public.ErrWrongType, err)
}

func TestKeysGlobMatch(t *testing.T) {
	ks := NewKeyspace()
	defer ks.Close()
	ks.Lock()
	defer ks.Unlock()

	ks.Set([]byte("hello"), []byte("1"), 0)
	ks.Set([]byte("help"), []byte("1"), 0)
	ks.Set([]byte("world"), []byte("1"), 0)

	keys := ks.Keys([]byte("hel*"))
	assert.Len(t, keys, 2)
}
