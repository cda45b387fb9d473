package database

import (
	"strings"

	"github.com/kirov7/kuloydis/public"
	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

// subscribedAllowed is the exact verb set permitted once a session has
// entered Subscribed mode.
var subscribedAllowed = map[string]bool{
	"subscribe": true, "unsubscribe": true, "ping": true, "quit": true,
}

// Database is the command dispatcher: the concrete server.Engine a
// server.Server drives, and the concrete replication.Applier a replica
// connection drives with replies suppressed. The only state
// it keeps is a back-reference to the owning Server, needed by Apply
// (which runs with no server.Conn) to reach db 0; every other handler
// reaches shared state through the server.Conn argument instead of
// ambient globals.
type Database struct {
	srv *server.Server
}

func NewDatabase(srv *server.Server) *Database { return &Database{srv: srv} }

// Exec implements server.Engine: it runs the Normal/Queuing/Subscribed
// mode machine and returns the fully encoded reply bytes
// (possibly more than one RESP frame, for SUBSCRIBE/UNSUBSCRIBE's
// one-frame-per-channel replies).
func (d *Database) Exec(c *server.Conn, args [][]byte) []byte {
	name := strings.ToLower(string(args[0]))
	rest := args[1:]

	if c.Subscribed() && !subscribedAllowed[name] {
		return reply.MakeErrReply(public.ErrSubscribeOnly.Error()).ToBytes()
	}

	switch name {
	case "multi":
		return d.execMulti(c).ToBytes()
	case "exec":
		return d.execExec(c).ToBytes()
	case "discard":
		return d.execDiscard(c).ToBytes()
	case "subscribe":
		return d.execSubscribe(c, rest)
	case "unsubscribe":
		return d.execUnsubscribe(c, rest)
	case "quit":
		c.SetClosing()
		return reply.MakeOkReply().ToBytes()
	}

	var r reply.Reply
	if c.InMulti() {
		r = d.queueCommand(c, name, args)
	} else {
		r = d.execNormal(c, name, args, rest)
	}
	// A nil Reply (REPLCONF ACK) means the command intentionally sends no
	// reply at all, matching real Redis's silent handling of a replica's
	// ack on the command-stream connection.
	if r == nil {
		return nil
	}
	return r.ToBytes()
}

// Apply implements replication.Applier: the replica-side command-stream
// reader calls this with replies suppressed. There is no Conn on that
// side, so queuing/subscription
// mode never applies; write commands are applied straight to db 0, the
// only database this server's simplified single-stream replication
// model propagates (see DESIGN.md).
func (d *Database) Apply(fullArgs [][]byte) {
	if len(fullArgs) == 0 {
		return
	}
	name := strings.ToLower(string(fullArgs[0]))
	cmd, ok := lookup(name)
	if !ok || !cmd.isWrite || cmd.isBlocking {
		return
	}
	ks := d.srv.DBs[0]
	ks.Lock()
	cmd.executor(d, nil, fullArgs[1:])
	ks.Unlock()
}

// execNormal runs one command outside a transaction: non-blocking
// commands execute under a single keyspace-lock acquisition (a command
// handler acquires this mutex once, then releases it); blocking commands (BLPOP, XREAD BLOCK, WAIT) manage their own locking
// since they may suspend the caller. A successfully-applied write is
// propagated to replicas verbatim.
func (d *Database) execNormal(c *server.Conn, name string, fullArgs, rest [][]byte) reply.Reply {
	cmd, ok := lookup(name)
	if !ok {
		return reply.MakeUnknownCommandErrReply(name)
	}
	if !validateArity(cmd.arity, len(fullArgs)) {
		return reply.MakeArgNumErrReply(name)
	}

	var r reply.Reply
	if cmd.isBlocking {
		r = cmd.executor(d, c, rest)
	} else {
		ks := c.Keyspace()
		ks.Lock()
		r = cmd.executor(d, c, rest)
		ks.Unlock()
	}

	if cmd.isWrite && !reply.IsErrorReply(r) {
		c.Server().Master.Propagate(fullArgs)
	}
	return r
}

// queueCommand implements the Queuing transition: append on success,
// or mark the transaction errored on an unknown command or arity
// mismatch, in both cases replying immediately rather than deferring
// the error to EXEC.
func (d *Database) queueCommand(c *server.Conn, name string, fullArgs [][]byte) reply.Reply {
	cmd, ok := lookup(name)
	if !ok {
		c.MarkErrored()
		return reply.MakeUnknownCommandErrReply(name)
	}
	if !validateArity(cmd.arity, len(fullArgs)) {
		c.MarkErrored()
		return reply.MakeArgNumErrReply(name)
	}
	c.QueueCommand(fullArgs)
	return reply.MakeStatusReply("QUEUED")
}
