package database

import (
	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

func init() {
	RegisterCommand("del", execDel, -2, true, false)
	RegisterCommand("exists", execExists, -2, false, false)
	RegisterCommand("type", execType, 2, false, false)
	RegisterCommand("keys", execKeys, 2, false, false)
}

func execDel(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	ks := c.Keyspace()
	n := 0
	for _, key := range args {
		if ks.Del(key) {
			n++
		}
	}
	return reply.MakeIntReply(int64(n))
}

func execExists(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	ks := c.Keyspace()
	n := 0
	for _, key := range args {
		if ks.Exists(key) {
			n++
		}
	}
	return reply.MakeIntReply(int64(n))
}

func execType(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	return reply.MakeStatusReply(c.Keyspace().Type(args[0]))
}

func execKeys(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	keys := c.Keyspace().Keys(args[0])
	return reply.MakeStringArrayReply(keys)
}
