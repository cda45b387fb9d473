package blocker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParkListWakesInFIFOOrder(t *testing.T) {
	tbl := NewTable()

	w1 := tbl.ParkList([]string{"k"})
	w2 := tbl.ParkList([]string{"k"})

	values := []string{"first", "second"}
	i := 0
	tbl.DrainList("k", func() ([]byte, bool) {
		if i >= len(values) {
			return nil, false
		}
		v := values[i]
		i++
		return []byte(v), true
	})

	wake1 := <-w1.Result
	assert.Equal(t, "first", string(wake1.Value))

	wake2 := <-w2.Result
	assert.Equal(t, "second", string(wake2.Value))
}

func TestCancelListRemovesWaiter(t *testing.T) {
	tbl := NewTable()
	w := tbl.ParkList([]string{"k"})
	tbl.CancelList(w)

	drained := false
	tbl.DrainList("k", func() ([]byte, bool) {
		drained = true
		return nil, false
	})
	assert.False(t, drained)

	select {
	case <-w.Result:
		t.Fatal("cancelled waiter should not be woken")
	default:
	}
}

func TestParkListAcrossMultipleKeysOnlyWakesOnce(t *testing.T) {
	tbl := NewTable()
	w := tbl.ParkList([]string{"a", "b"})

	tbl.DrainList("a", func() ([]byte, bool) { return []byte("v"), true })

	wake := <-w.Result
	assert.Equal(t, "a", wake.Key)

	// b's queue should no longer contain w.
	drained := false
	tbl.DrainList("b", func() ([]byte, bool) {
		drained = true
		return []byte("other"), true
	})
	assert.False(t, drained)
}

func TestParkStreamWakesEveryWaiter(t *testing.T) {
	tbl := NewTable()
	w1 := tbl.ParkStream([]string{"s"})
	w2 := tbl.ParkStream([]string{"s"})

	tbl.WakeStream("s")

	select {
	case <-w1.StreamResult:
	default:
		t.Fatal("w1 should have been woken")
	}
	select {
	case <-w2.StreamResult:
	default:
		t.Fatal("w2 should have been woken")
	}
}

func TestCancelStreamRemovesWaiter(t *testing.T) {
	tbl := NewTable()
	w := tbl.ParkStream([]string{"s"})
	tbl.CancelStream(w)
	tbl.WakeStream("s")

	select {
	case <-w.StreamResult:
		t.Fatal("cancelled stream waiter should not be woken")
	default:
	}
}

func TestParkStreamAcrossMultipleKeysWakesOnceThenUnregisters(t *testing.T) {
	tbl := NewTable()
	w := tbl.ParkStream([]string{"s1", "s2"})

	tbl.WakeStream("s1")
	require.Len(t, w.StreamResult, 1)
	<-w.StreamResult

	// Already removed from s2's queue by the s1 wake.
	tbl.WakeStream("s2")
	select {
	case <-w.StreamResult:
		t.Fatal("waiter should have been removed from s2's queue")
	default:
	}
}
