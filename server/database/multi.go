package database

import (
	"strings"

	"github.com/kirov7/kuloydis/public"
	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

// execMulti begins Queuing mode. Nested
// MULTI is rejected without touching the existing queue.
func (d *Database) execMulti(c *server.Conn) reply.Reply {
	if c.InMulti() {
		return reply.MakeErrReply(public.ErrNestedMulti.Error())
	}
	c.BeginMulti()
	return reply.MakeOkReply()
}

func (d *Database) execDiscard(c *server.Conn) reply.Reply {
	if !c.InMulti() {
		return reply.MakeErrReply("ERR DISCARD without MULTI")
	}
	c.EndMulti()
	return reply.MakeOkReply()
}

// execExec runs the queued commands as one continuous critical
// section: every queued command executes in order under one
// continuous keyspace lock. An errored queue aborts without touching
// the keyspace at all.
func (d *Database) execExec(c *server.Conn) reply.Reply {
	if !c.InMulti() {
		return reply.MakeErrReply(public.ErrNoMulti.Error())
	}
	txn := c.EndMulti()
	if txn.Errored {
		return reply.MakeErrReply(public.ErrExecAbort.Error())
	}

	ks := c.Keyspace()
	ks.Lock()
	c.SetInExec(true)

	replies := make([]reply.Reply, 0, len(txn.Queue))
	var propagate [][][]byte
	for _, fullArgs := range txn.Queue {
		name := strings.ToLower(string(fullArgs[0]))
		cmd, ok := lookup(name)
		if !ok {
			replies = append(replies, reply.MakeUnknownCommandErrReply(name))
			continue
		}
		r := cmd.executor(d, c, fullArgs[1:])
		replies = append(replies, r)
		if cmd.isWrite && !reply.IsErrorReply(r) {
			propagate = append(propagate, fullArgs)
		}
	}

	c.SetInExec(false)
	ks.Unlock()

	for _, fullArgs := range propagate {
		c.Server().Master.Propagate(fullArgs)
	}
	return reply.MakeMultiBulkReply(replies)
}
