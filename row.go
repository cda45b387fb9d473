package kuloydis

import (
	"container/list"

	"github.com/kirov7/kuloydis/meta"
)

// kind tags the shape a row's value takes. There is no inheritance
// here: every handler switches on kind and rejects mismatches with
// public.ErrWrongType.
type kind byte

const (
	kindString kind = iota
	kindList
	kindStream
	kindZSet
)

func (k kind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindList:
		return "list"
	case kindStream:
		return "stream"
	case kindZSet:
		return "zset"
	default:
		return "none"
	}
}

// streamID is the (ms, seq) pair ordering stream entries lexicographically.
type streamID struct {
	ms, seq uint64
}

func (a streamID) less(b streamID) bool {
	if a.ms != b.ms {
		return a.ms < b.ms
	}
	return a.seq < b.seq
}

func (a streamID) lessEq(b streamID) bool {
	return a.less(b) || a == b
}

type streamField struct {
	field, value []byte
}

type streamEntry struct {
	id     streamID
	fields []streamField
}

type streamValue struct {
	entries []streamEntry
	lastID  streamID
}

// row is the tagged Value stored for one key: exactly one of the typed
// fields below is meaningful, selected by kind. expireAt is 0 when the key
// carries no TTL, otherwise an absolute unix-millisecond deadline.
type row struct {
	kind kind

	str []byte

	list *list.List // elements are []byte

	stream *streamValue

	zset *meta.ScoreIndex

	expireAt int64
}

func newStringRow(v []byte) *row {
	return &row{kind: kindString, str: v}
}

func newListRow() *row {
	return &row{kind: kindList, list: list.New()}
}

func newStreamRow() *row {
	return &row{kind: kindStream, stream: &streamValue{}}
}

func newZSetRow() *row {
	return &row{kind: kindZSet, zset: meta.NewScoreIndex()}
}
