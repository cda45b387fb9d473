package database

import (
	"strconv"
	"strings"
	"time"

	"github.com/kirov7/kuloydis"
	"github.com/kirov7/kuloydis/public"
	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

func init() {
	RegisterCommand("xadd", execXAdd, -5, true, false)
	RegisterCommand("xrange", execXRange, 4, false, false)
	RegisterCommand("xread", execXRead, -4, false, true)
}

// execXAdd implements XADD key id field value [field value ...].
func execXAdd(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	key := args[0]
	idSpec := string(args[1])
	fv := args[2:]
	if len(fv)%2 != 0 || len(fv) == 0 {
		return reply.MakeErrReply(public.ErrSyntax.Error())
	}
	pairs := make([][2][]byte, len(fv)/2)
	for i := range pairs {
		pairs[i] = [2][]byte{fv[2*i], fv[2*i+1]}
	}
	id, err := c.Keyspace().XAdd(key, idSpec, pairs)
	if err != nil {
		return errReply(err)
	}
	return reply.MakeBulkReply([]byte(id))
}

func execXRange(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	entries, err := c.Keyspace().XRange(args[0], string(args[1]), string(args[2]))
	if err != nil {
		return errReply(err)
	}
	return reply.MakeMultiBulkReply(entryReplies(entries))
}

// entryReplies renders a []StreamEntry as the [id, [field, value, ...]]
// array pairs both XRANGE and XREAD return.
func entryReplies(entries []kuloydis.StreamEntry) []reply.Reply {
	out := make([]reply.Reply, len(entries))
	for i, e := range entries {
		flat := make([][]byte, 0, len(e.Fields)*2)
		for _, fv := range e.Fields {
			flat = append(flat, fv[0], fv[1])
		}
		out[i] = reply.MakeMultiBulkReply([]reply.Reply{
			reply.MakeBulkReply([]byte(e.ID)),
			reply.MakeStringArrayReply(flat),
		})
	}
	return out
}

// execXRead implements XREAD [BLOCK ms] STREAMS key [key ...] id [id
// ...]. "$" resolves to each stream's current last-ID synchronously
// inside the critical section the command enters: capturing the
// baseline outside the lock would race concurrent XADDs.
func execXRead(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	blockMs := -1
	i := 0
	for i < len(args) {
		switch strings.ToLower(string(args[i])) {
		case "block":
			if i+1 >= len(args) {
				return reply.MakeErrReply(public.ErrSyntax.Error())
			}
			n, err := strconv.Atoi(string(args[i+1]))
			if err != nil {
				return reply.MakeErrReply(public.ErrNotInteger.Error())
			}
			blockMs = n
			i += 2
		case "streams":
			i++
			goto streamsFound
		default:
			return reply.MakeErrReply(public.ErrSyntax.Error())
		}
	}
	return reply.MakeErrReply(public.ErrSyntax.Error())

streamsFound:
	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return reply.MakeErrReply(public.ErrSyntax.Error())
	}
	nkeys := len(rest) / 2
	keys := rest[:nkeys]
	idSpecs := rest[nkeys:]

	ks := c.Keyspace()
	locked := !c.InExec()
	if locked {
		ks.Lock()
	}
	resolved := make([]string, nkeys)
	for idx, spec := range idSpecs {
		if string(spec) == "$" {
			last, err := ks.LastStreamID(keys[idx])
			if err != nil {
				if locked {
					ks.Unlock()
				}
				return errReply(err)
			}
			resolved[idx] = last
		} else {
			resolved[idx] = string(spec)
		}
	}

	keyOrder, results, err := gatherXRead(ks, keys, resolved)
	if err != nil {
		if locked {
			ks.Unlock()
		}
		return errReply(err)
	}

	if len(results) > 0 || blockMs < 0 || c.InExec() {
		if locked {
			ks.Unlock()
		}
		if len(results) == 0 {
			return reply.MakeNullArrayReply()
		}
		return buildXReadReply(keyOrder, results)
	}

	strKeys := make([]string, nkeys)
	for idx, k := range keys {
		strKeys[idx] = string(k)
	}
	w := ks.Blocker().ParkStream(strKeys)
	ks.Unlock()

	dead, stopWatch := c.WatchDisconnect()
	defer stopWatch()

	var timerC <-chan time.Time
	if blockMs > 0 {
		timer := time.NewTimer(time.Duration(blockMs) * time.Millisecond)
		defer timer.Stop()
		timerC = timer.C
	}

	for {
		select {
		case <-w.StreamResult:
			ks.Lock()
			keyOrder, results, err := gatherXRead(ks, keys, resolved)
			if err != nil {
				ks.Unlock()
				return errReply(err)
			}
			if len(results) > 0 {
				ks.Unlock()
				return buildXReadReply(keyOrder, results)
			}
			// Woken by an entry that is not past this call's baseline. The
			// wake unregistered w from every key, so park again and keep
			// waiting for a later entry or the deadline.
			w = ks.Blocker().ParkStream(strKeys)
			ks.Unlock()
		case <-timerC:
			ks.Blocker().CancelStream(w)
			return reply.MakeNullArrayReply()
		case <-dead:
			ks.Blocker().CancelStream(w)
			return nil
		}
	}
}

// gatherXRead collects, per key in request order, the entries strictly
// after that key's resolved baseline id. A key with zero matching
// entries is omitted from both returned slices.
// Caller must hold ks.Lock().
func gatherXRead(ks *kuloydis.Keyspace, keys [][]byte, resolved []string) ([]string, [][]kuloydis.StreamEntry, error) {
	var keyOrder []string
	var results [][]kuloydis.StreamEntry
	for idx, key := range keys {
		entries, err := ks.XReadOne(key, resolved[idx])
		if err != nil {
			return nil, nil, err
		}
		if len(entries) == 0 {
			continue
		}
		keyOrder = append(keyOrder, string(key))
		results = append(results, entries)
	}
	return keyOrder, results, nil
}

func buildXReadReply(keyOrder []string, results [][]kuloydis.StreamEntry) reply.Reply {
	out := make([]reply.Reply, len(keyOrder))
	for i, key := range keyOrder {
		out[i] = reply.MakeMultiBulkReply([]reply.Reply{
			reply.MakeBulkReply([]byte(key)),
			reply.MakeMultiBulkReply(entryReplies(results[i])),
		})
	}
	return reply.MakeMultiBulkReply(out)
}
