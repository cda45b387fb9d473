package kuloydis

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kirov7/kuloydis/public"
)

func formatStreamID(id streamID) string {
	return fmt.Sprintf("%d-%d", id.ms, id.seq)
}

// parseExplicitID parses a fully-specified "ms" or "ms-seq" id. Used for
// XRANGE bounds and, with autoSeq handling layered on top, for XADD.
func parseExplicitID(s string, seqIfMissing uint64) (streamID, error) {
	parts := strings.SplitN(s, "-", 2)
	ms, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return streamID{}, public.ErrNotInteger
	}
	seq := seqIfMissing
	if len(parts) == 2 {
		seq, err = strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return streamID{}, public.ErrNotInteger
		}
	}
	return streamID{ms: ms, seq: seq}, nil
}

// parseRangeBound parses an XRANGE bound: "-" / "+" sentinels, or an id
// defaulting seq to 0 on the low side and MaxUint64 on the high side when
// no "-seq" is given.
func parseRangeBound(s string, isLow bool) (streamID, error) {
	switch s {
	case "-":
		return streamID{0, 0}, nil
	case "+":
		return streamID{^uint64(0), ^uint64(0)}, nil
	}
	defaultSeq := uint64(0)
	if !isLow {
		defaultSeq = ^uint64(0)
	}
	return parseExplicitID(s, defaultSeq)
}

// resolveAddID implements the XADD ID grammar: "*" fully auto, "ms-*"
// auto-seq, or an explicit "ms-seq".
func resolveAddID(spec string, last streamID, clockMs uint64) (streamID, error) {
	if spec == "*" {
		ms := clockMs
		if last.ms > ms {
			ms = last.ms
		}
		seq := uint64(0)
		if ms == last.ms {
			seq = last.seq + 1
		}
		return streamID{ms: ms, seq: seq}, nil
	}
	if strings.HasSuffix(spec, "-*") {
		msPart := strings.TrimSuffix(spec, "-*")
		ms, err := strconv.ParseUint(msPart, 10, 64)
		if err != nil {
			return streamID{}, public.ErrNotInteger
		}
		seq := uint64(0)
		if ms == last.ms {
			seq = last.seq + 1
		} else if ms != 0 {
			seq = 0
		} else {
			seq = 1
		}
		return streamID{ms: ms, seq: seq}, nil
	}
	return parseExplicitID(spec, 0)
}

// XAdd appends an entry with the resolved id to key's stream, creating the
// stream if absent. Fails (state unchanged) if the resolved id is not
// strictly greater than the stream's last id, or is "0-0".
func (ks *Keyspace) XAdd(key []byte, idSpec string, fieldPairs [][2][]byte) (string, error) {
	r, ok := ks.getRow(key)
	if ok && r.kind != kindStream {
		return "", public.ErrWrongType
	}
	var last streamID
	if ok {
		last = r.stream.lastID
	}

	id, err := resolveAddID(idSpec, last, uint64(time.Now().UnixMilli()))
	if err != nil {
		return "", err
	}
	if id == (streamID{0, 0}) {
		return "", public.ErrStreamIDZero
	}
	if !last.less(id) {
		return "", public.ErrStreamID
	}

	if !ok {
		r = newStreamRow()
		ks.putRow(key, r)
	}
	fields := make([]streamField, len(fieldPairs))
	for i, fv := range fieldPairs {
		fields[i] = streamField{field: fv[0], value: fv[1]}
	}
	r.stream.entries = append(r.stream.entries, streamEntry{id: id, fields: fields})
	r.stream.lastID = id

	ks.blocker.WakeStream(string(key))

	return formatStreamID(id), nil
}

// LastStreamID returns the current last id of key's stream (zero value if
// absent or empty), used to resolve XREAD's "$" sentinel.
func (ks *Keyspace) LastStreamID(key []byte) (string, error) {
	r, ok := ks.getRow(key)
	if !ok {
		return formatStreamID(streamID{}), nil
	}
	if r.kind != kindStream {
		return "", public.ErrWrongType
	}
	return formatStreamID(r.stream.lastID), nil
}

type StreamEntry struct {
	ID     string
	Fields [][2][]byte
}

func toStreamEntry(e streamEntry) StreamEntry {
	out := StreamEntry{ID: formatStreamID(e.id)}
	for _, f := range e.fields {
		out.Fields = append(out.Fields, [2][]byte{f.field, f.value})
	}
	return out
}

// XRange returns all entries with low <= id <= high, in id order.
func (ks *Keyspace) XRange(key []byte, lowSpec, highSpec string) ([]StreamEntry, error) {
	low, err := parseRangeBound(lowSpec, true)
	if err != nil {
		return nil, err
	}
	high, err := parseRangeBound(highSpec, false)
	if err != nil {
		return nil, err
	}

	r, ok := ks.getRow(key)
	if !ok {
		return nil, nil
	}
	if r.kind != kindStream {
		return nil, public.ErrWrongType
	}
	var out []StreamEntry
	for _, e := range r.stream.entries {
		if low.lessEq(e.id) && e.id.lessEq(high) {
			out = append(out, toStreamEntry(e))
		}
	}
	return out, nil
}

// XReadOne returns entries of key strictly greater than fromSpec, used
// both by the non-blocking XREAD path and, after a blocked wake, to
// re-check a single stream against its resolved baseline.
func (ks *Keyspace) XReadOne(key []byte, fromSpec string) ([]StreamEntry, error) {
	from, err := parseExplicitID(fromSpec, 0)
	if err != nil {
		return nil, err
	}
	r, ok := ks.getRow(key)
	if !ok {
		return nil, nil
	}
	if r.kind != kindStream {
		return nil, public.ErrWrongType
	}
	var out []StreamEntry
	for _, e := range r.stream.entries {
		if from.less(e.id) {
			out = append(out, toStreamEntry(e))
		}
	}
	return out, nil
}
