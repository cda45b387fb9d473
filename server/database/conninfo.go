// INFO and CONFIG GET: read-only introspection of the server's
// replication role and startup options.
package database

import (
	"fmt"
	"strings"

	"github.com/kirov7/kuloydis/public"
	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

func init() {
	RegisterCommand("info", execInfo, -1, false, false)
	RegisterCommand("config", execConfig, 3, false, false)
}

// execInfo answers INFO [section] with at least a replication section:
// role, replid and the master's repl-offset. Any section argument is
// accepted and produces the same block, since replication is the only
// section this server models.
func execInfo(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	m := c.Server().Master
	body := fmt.Sprintf("role:%s\r\nmaster_replid:%s\r\nmaster_repl_offset:%d\r\n",
		c.Server().Role(), m.ReplID(), m.Offset())
	return reply.MakeBulkReply([]byte(body))
}

// execConfig answers CONFIG GET dir|dbfilename; only these two
// parameters are modeled, and any other parameter name returns an empty
// array, matching real Redis's behavior for an unknown CONFIG GET key.
func execConfig(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	if !strings.EqualFold(string(args[0]), "get") {
		return reply.MakeErrReply(public.ErrSyntax.Error())
	}
	opts := c.Server().Opts
	var value string
	switch strings.ToLower(string(args[1])) {
	case "dir":
		value = opts.Dir
	case "dbfilename":
		value = opts.DBFilename
	default:
		return reply.MakeEmptyArrayReply()
	}
	return reply.MakeStringArrayReply([][]byte{args[1], []byte(value)})
}
