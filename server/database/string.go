package database

import (
	"strconv"
	"strings"
	"time"

	"github.com/kirov7/kuloydis/public"
	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

func init() {
	RegisterCommand("get", execGet, 2, false, false)
	RegisterCommand("set", execSet, -3, true, false)
	RegisterCommand("setnx", execSetNX, 3, true, false)
	RegisterCommand("getset", execGetSet, 3, true, false)
	RegisterCommand("strlen", execStrLen, 2, false, false)
	RegisterCommand("incr", execIncr, 2, true, false)
}

func execGet(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	v, ok, err := c.Keyspace().Get(args[0])
	if err != nil {
		return errReply(err)
	}
	if !ok {
		return reply.MakeNullBulkReply()
	}
	return reply.MakeBulkReply(v)
}

// execSet implements SET key value [EX seconds | PX milliseconds].
func execSet(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	key, value := args[0], args[1]
	expireAtMs := int64(0)
	rest := args[2:]
	for len(rest) > 0 {
		switch strings.ToLower(string(rest[0])) {
		case "ex":
			if len(rest) < 2 {
				return reply.MakeErrReply(public.ErrSyntax.Error())
			}
			secs, err := strconv.ParseInt(string(rest[1]), 10, 64)
			if err != nil {
				return reply.MakeErrReply(public.ErrNotInteger.Error())
			}
			expireAtMs = time.Now().UnixMilli() + secs*1000
			rest = rest[2:]
		case "px":
			if len(rest) < 2 {
				return reply.MakeErrReply(public.ErrSyntax.Error())
			}
			ms, err := strconv.ParseInt(string(rest[1]), 10, 64)
			if err != nil {
				return reply.MakeErrReply(public.ErrNotInteger.Error())
			}
			expireAtMs = time.Now().UnixMilli() + ms
			rest = rest[2:]
		default:
			return reply.MakeErrReply(public.ErrSyntax.Error())
		}
	}
	c.Keyspace().Set(key, value, expireAtMs)
	return reply.MakeOkReply()
}

func execSetNX(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	ok := c.Keyspace().SetNX(args[0], args[1])
	if ok {
		return reply.MakeIntReply(1)
	}
	return reply.MakeIntReply(0)
}

func execGetSet(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	old, existed, err := c.Keyspace().GetSet(args[0], args[1])
	if err != nil {
		return errReply(err)
	}
	if !existed {
		return reply.MakeNullBulkReply()
	}
	return reply.MakeBulkReply(old)
}

func execStrLen(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	n, err := c.Keyspace().StrLen(args[0])
	if err != nil {
		return errReply(err)
	}
	return reply.MakeIntReply(int64(n))
}

func execIncr(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	n, err := c.Keyspace().Incr(args[0])
	if err != nil {
		return errReply(err)
	}
	return reply.MakeIntReply(n)
}

// errReply maps a keyspace sentinel error (public/errors.go) to its RESP
// wire form; every sentinel's Error() text is already the exact message
// clients expect.
func errReply(err error) reply.Reply {
	return reply.MakeErrReply(err.Error())
}
