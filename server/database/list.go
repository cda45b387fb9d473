package database

import (
	"strconv"
	"time"

	"github.com/kirov7/kuloydis/public"
	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

func init() {
	RegisterCommand("lpush", execLPush, -3, true, false)
	RegisterCommand("rpush", execRPush, -3, true, false)
	RegisterCommand("lpop", execLPop, 2, true, false)
	RegisterCommand("rpop", execRPop, 2, true, false)
	RegisterCommand("lrange", execLRange, 4, false, false)
	RegisterCommand("llen", execLLen, 2, false, false)
	RegisterCommand("blpop", execBLPop, -3, false, true)
}

func execLPush(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	n, err := c.Keyspace().Push(args[0], false, args[1:])
	if err != nil {
		return errReply(err)
	}
	return reply.MakeIntReply(int64(n))
}

func execRPush(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	n, err := c.Keyspace().Push(args[0], true, args[1:])
	if err != nil {
		return errReply(err)
	}
	return reply.MakeIntReply(int64(n))
}

func execLPop(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	v, ok, err := c.Keyspace().Pop(args[0], true)
	if err != nil {
		return errReply(err)
	}
	if !ok {
		return reply.MakeNullBulkReply()
	}
	return reply.MakeBulkReply(v)
}

func execRPop(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	v, ok, err := c.Keyspace().Pop(args[0], false)
	if err != nil {
		return errReply(err)
	}
	if !ok {
		return reply.MakeNullBulkReply()
	}
	return reply.MakeBulkReply(v)
}

func execLRange(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	start, err := strconv.Atoi(string(args[1]))
	if err != nil {
		return reply.MakeErrReply(public.ErrNotInteger.Error())
	}
	stop, err := strconv.Atoi(string(args[2]))
	if err != nil {
		return reply.MakeErrReply(public.ErrNotInteger.Error())
	}
	items, err := c.Keyspace().Range(args[0], start, stop)
	if err != nil {
		return errReply(err)
	}
	return reply.MakeStringArrayReply(items)
}

func execLLen(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	n, err := c.Keyspace().Len(args[0])
	if err != nil {
		return errReply(err)
	}
	return reply.MakeIntReply(int64(n))
}

// execBLPop implements BLPOP key... timeout: an immediate
// pop if any listed key has a non-empty list, otherwise parks the
// session with a deadline. A command queued inside MULTI never actually
// suspends: Conn.InExec skips parking and behaves as a single
// non-blocking attempt, matching real Redis's MULTI semantics.
func execBLPop(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	n := len(args)
	timeoutSecs, err := strconv.ParseFloat(string(args[n-1]), 64)
	if err != nil || timeoutSecs < 0 {
		return reply.MakeErrReply("ERR timeout is not a float or out of range")
	}
	keys := args[:n-1]

	ks := c.Keyspace()

	if c.InExec() {
		key, value, ok, err := ks.TryPopFront(keys)
		if err != nil {
			return errReply(err)
		}
		if !ok {
			return reply.MakeNullArrayReply()
		}
		return blpopResult(key, value)
	}

	ks.Lock()
	key, value, ok, err := ks.TryPopFront(keys)
	if err != nil {
		ks.Unlock()
		return errReply(err)
	}
	if ok {
		ks.Unlock()
		return blpopResult(key, value)
	}

	strKeys := make([]string, len(keys))
	for i, k := range keys {
		strKeys[i] = string(k)
	}
	w := ks.Blocker().ParkList(strKeys)
	ks.Unlock()

	dead, stopWatch := c.WatchDisconnect()
	defer stopWatch()

	var timerC <-chan time.Time
	if timeoutSecs > 0 {
		timer := time.NewTimer(time.Duration(timeoutSecs * float64(time.Second)))
		defer timer.Stop()
		timerC = timer.C
	}

	select {
	case wake := <-w.Result:
		return blpopResult(wake.Key, wake.Value)
	case <-timerC:
		ks.Blocker().CancelList(w)
		return reply.MakeNullArrayReply()
	case <-dead:
		ks.Blocker().CancelList(w)
		return nil
	}
}

func blpopResult(key string, value []byte) reply.Reply {
	return reply.MakeMultiBulkReply([]reply.Reply{
		reply.MakeBulkReply([]byte(key)),
		reply.MakeBulkReply(value),
	})
}
