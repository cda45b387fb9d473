// Package database is the command dispatcher: it holds the
// verb -> handler registry and the mode-rule state machine (Normal,
// Queuing, Subscribed) layered on top of server.Conn sessions.
package database

import (
	"strings"

	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

// ExecFunc is one command's handler. args excludes the verb itself. d is
// the owning Database, letting a handler reach other registered commands
// (EXEC replays the queue through the same table) without a global.
type ExecFunc func(d *Database, c *server.Conn, args [][]byte) reply.Reply

type command struct {
	executor   ExecFunc
	arity      int // arity < 0 means len(cmdLine) >= -arity (cmdLine includes the verb)
	isWrite    bool
	isBlocking bool
}

var cmdTable = make(map[string]*command)

// RegisterCommand registers name's handler and arity. arity counts the
// full command line including the verb itself ("the arity of `get` is 2,
// `mget` is -2"). isWrite marks commands whose successful execution must
// be propagated to replicas. isBlocking marks the commands allowed to
// suspend the issuing session (BLPOP, XREAD BLOCK, WAIT); their handlers
// manage the keyspace lock themselves instead of having Database.Exec
// hold it for their whole (possibly unbounded) duration.
func RegisterCommand(name string, executor ExecFunc, arity int, isWrite bool, isBlocking bool) {
	name = strings.ToLower(name)
	cmdTable[name] = &command{executor: executor, arity: arity, isWrite: isWrite, isBlocking: isBlocking}
}

func validateArity(arity, argc int) bool {
	if arity >= 0 {
		return argc == arity
	}
	return argc >= -arity
}

func lookup(name string) (*command, bool) {
	cmd, ok := cmdTable[strings.ToLower(name)]
	return cmd, ok
}
