// REPLCONF, PSYNC and WAIT: the master/replica handshake and
// acknowledgment surface.
package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kirov7/kuloydis/public"
	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

func init() {
	RegisterCommand("replconf", execReplConf, -3, false, false)
	RegisterCommand("psync", execPsync, 3, false, false)
	RegisterCommand("wait", execWait, 3, false, true)
}

// execReplConf handles both directions of the handshake's acknowledgment
// sub-commands: LISTENING-PORT/CAPA during the initial handshake
// (always answered +OK) and ACK, the replica's answer to a
// GETACK this connection's replica handle is waiting on.
func execReplConf(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	switch strings.ToLower(string(args[0])) {
	case "listening-port", "capa":
		return reply.MakeOkReply()
	case "ack":
		if len(args) < 2 {
			return reply.MakeErrReply(public.ErrSyntax.Error())
		}
		offset, err := strconv.ParseInt(string(args[1]), 10, 64)
		if err != nil {
			return reply.MakeErrReply(public.ErrNotInteger.Error())
		}
		if h := c.Replica(); h != nil {
			c.Server().Master.Ack(h.ID, offset)
		}
		return nil // ACK carries no reply
	default:
		return reply.MakeOkReply()
	}
}

// execPsync implements the master side of PSYNC ? -1: it registers
// this connection as a replica and replies
// "+FULLRESYNC <replid> 0" immediately followed by a length-prefixed RDB
// bulk with no trailing CRLF. The snapshot payload itself is an abstract
// collaborator; an empty snapshot is valid for a fresh master.
func execPsync(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	m := c.Server().Master
	h := m.RegisterReplica(c.RawConn())
	c.SetReplica(h)

	out := []byte(fmt.Sprintf("+FULLRESYNC %s 0\r\n", m.ReplID()))
	out = append(out, []byte("$0\r\n")...)
	return reply.MakeRawReply(out)
}

// execWait implements WAIT numreplicas timeout-ms: it
// suspends the issuing session (isBlocking) without touching the
// keyspace lock at all, since it only depends on replica ack state.
func execWait(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	numReplicas, err := strconv.Atoi(string(args[0]))
	if err != nil {
		return reply.MakeErrReply(public.ErrNotInteger.Error())
	}
	timeoutMs, err := strconv.Atoi(string(args[1]))
	if err != nil {
		return reply.MakeErrReply(public.ErrNotInteger.Error())
	}
	n := c.Server().Master.Wait(numReplicas, time.Duration(timeoutMs)*time.Millisecond)
	return reply.MakeIntReply(int64(n))
}
