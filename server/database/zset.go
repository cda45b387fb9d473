package database

import (
	"strconv"

	"github.com/kirov7/kuloydis"
	"github.com/kirov7/kuloydis/public"
	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

func init() {
	RegisterCommand("zadd", execZAdd, -4, true, false)
	RegisterCommand("zrem", execZRem, -3, true, false)
	RegisterCommand("zscore", execZScore, 3, false, false)
	RegisterCommand("zrank", execZRank, 3, false, false)
	RegisterCommand("zrange", execZRange, 4, false, false)
	RegisterCommand("zcard", execZCard, 2, false, false)
}

func execZAdd(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	rest := args[1:]
	if len(rest)%2 != 0 {
		return reply.MakeErrReply(public.ErrSyntax.Error())
	}
	pairs := make([]kuloydis.ScoreMember, len(rest)/2)
	for i := range pairs {
		score, err := strconv.ParseFloat(string(rest[2*i]), 64)
		if err != nil {
			return reply.MakeErrReply(public.ErrNotFloat.Error())
		}
		pairs[i] = kuloydis.ScoreMember{Score: score, Member: rest[2*i+1]}
	}
	n, err := c.Keyspace().ZAdd(args[0], pairs)
	if err != nil {
		return errReply(err)
	}
	return reply.MakeIntReply(int64(n))
}

func execZRem(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	n, err := c.Keyspace().ZRem(args[0], args[1:])
	if err != nil {
		return errReply(err)
	}
	return reply.MakeIntReply(int64(n))
}

func execZScore(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	score, ok, err := c.Keyspace().ZScore(args[0], args[1])
	if err != nil {
		return errReply(err)
	}
	if !ok {
		return reply.MakeNullBulkReply()
	}
	return reply.MakeBulkReply([]byte(kuloydis.FormatScore(score)))
}

func execZRank(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	rank, ok, err := c.Keyspace().ZRank(args[0], args[1])
	if err != nil {
		return errReply(err)
	}
	if !ok {
		return reply.MakeNullBulkReply()
	}
	return reply.MakeIntReply(int64(rank))
}

func execZRange(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	start, err := strconv.Atoi(string(args[1]))
	if err != nil {
		return reply.MakeErrReply(public.ErrNotInteger.Error())
	}
	stop, err := strconv.Atoi(string(args[2]))
	if err != nil {
		return reply.MakeErrReply(public.ErrNotInteger.Error())
	}
	items, err := c.Keyspace().ZRange(args[0], start, stop)
	if err != nil {
		return errReply(err)
	}
	members := make([][]byte, len(items))
	for i, it := range items {
		members[i] = it.Member
	}
	return reply.MakeStringArrayReply(members)
}

func execZCard(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	n, err := c.Keyspace().ZCard(args[0])
	if err != nil {
		return errReply(err)
	}
	return reply.MakeIntReply(int64(n))
}
