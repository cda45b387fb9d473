package database

import (
	"strconv"

	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

func init() {
	RegisterCommand("ping", execPing, -1, false, false)
	RegisterCommand("echo", execEcho, 2, false, false)
	RegisterCommand("select", execSelect, 2, false, false)
}

func execPing(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	switch len(args) {
	case 0:
		return reply.MakePongReply()
	case 1:
		return reply.MakeBulkReply(args[0])
	default:
		return reply.MakeArgNumErrReply("ping")
	}
}

func execEcho(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	return reply.MakeBulkReply(args[0])
}

// execSelect switches the session's active database among the server's
// NumDatabases SELECT-able keyspaces.
func execSelect(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	n, err := strconv.Atoi(string(args[0]))
	if err != nil {
		return reply.MakeErrReply("ERR value is not an integer or out of range")
	}
	if n < 0 || n >= len(c.Server().DBs) {
		return reply.MakeErrReply("ERR DB index is out of range")
	}
	c.SetDB(n)
	return reply.MakeOkReply()
}
