// Package server hosts the per-connection session and
// the TCP accept loop driving it. Command execution itself is pluggable
// behind the Engine interface so this package never imports the command
// registry (server/database), avoiding an import cycle that split would
// otherwise create.
package server

import (
	"net"
	"sync"
	"time"

	"github.com/kirov7/kuloydis"
	"github.com/kirov7/kuloydis/pubsub"
	"github.com/kirov7/kuloydis/replication"
	"github.com/kirov7/kuloydis/resp"
)

// Txn is a session's queued transaction.
type Txn struct {
	Queue   [][][]byte
	Errored bool
}

// Conn is one client connection's session state: selected db, an
// optional in-flight transaction, the subscription set, and — once this
// session issues PSYNC on a master — its replica handle.
type Conn struct {
	srv *Server
	rwc net.Conn
	R   *resp.Reader
	W   *resp.Writer

	ID         uint64
	remoteAddr string

	mu   sync.Mutex
	db   int
	txn  *Txn
	subs map[string]struct{}

	subscriber *pubsub.Subscriber
	replica    *replication.ReplicaHandle

	// inExec is set for the duration of EXEC's queued-command loop: only
	// this connection's own command-processing goroutine reads or writes
	// it, so it needs no lock. Blocking-command handlers
	// consult it to skip parking, matching real Redis's MULTI semantics
	// where a queued BLPOP/XREAD BLOCK never actually suspends.
	inExec bool

	// closing is set by QUIT so the accept loop closes the connection
	// after writing the final +OK reply.
	closing bool
}

func newConn(srv *Server, rwc net.Conn, id uint64) *Conn {
	return &Conn{
		srv:        srv,
		rwc:        rwc,
		R:          resp.NewReader(rwc),
		W:          resp.NewWriter(rwc),
		ID:         id,
		remoteAddr: rwc.RemoteAddr().String(),
		subs:       make(map[string]struct{}),
	}
}

func (c *Conn) Server() *Server        { return c.srv }
func (c *Conn) RemoteAddr() string     { return c.remoteAddr }
func (c *Conn) RawConn() net.Conn      { return c.rwc }
func (c *Conn) DB() int                     { return c.db }
func (c *Conn) SetDB(n int)                 { c.db = n }
func (c *Conn) Keyspace() *kuloydis.Keyspace { return c.srv.DBs[c.db] }

// InMulti/BeginMulti/EndMulti manage the Queuing state transition.
func (c *Conn) InMulti() bool { return c.txn != nil }

func (c *Conn) BeginMulti() { c.txn = &Txn{} }

func (c *Conn) QueueCommand(args [][]byte) {
	c.txn.Queue = append(c.txn.Queue, args)
}

func (c *Conn) MarkErrored() {
	if c.txn != nil {
		c.txn.Errored = true
	}
}

func (c *Conn) EndMulti() *Txn {
	t := c.txn
	c.txn = nil
	return t
}

// Subscribed reports whether this session is in Subscribed mode: at
// least one channel subscription is active.
func (c *Conn) Subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs) > 0
}

func (c *Conn) SubscriptionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Conn) Subscriber() *pubsub.Subscriber {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscriber == nil {
		c.subscriber = pubsub.NewSubscriber(c.ID, 128)
		go c.deliverSubscriptions()
	}
	return c.subscriber
}

func (c *Conn) AddSubscription(channel string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[channel] = struct{}{}
	return len(c.subs)
}

func (c *Conn) RemoveSubscription(channel string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, channel)
	return len(c.subs)
}

func (c *Conn) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subs))
	for ch := range c.subs {
		out = append(out, ch)
	}
	return out
}

// deliverSubscriptions drains the subscriber's outbox onto the socket,
// outside the keyspace/hub lock that enqueued it.
func (c *Conn) deliverSubscriptions() {
	for frame := range c.subscriber.Outbox {
		if err := c.W.WriteValue(frame); err != nil {
			return
		}
		_ = c.W.Flush()
	}
}

// WatchDisconnect starts a background probe that notices the client
// closing its half of the connection while this goroutine is parked
// inside a blocking command (BLPOP, XREAD BLOCK). The command's own
// goroutine isn't reading the socket while parked, so nothing else
// would observe a close; the probe polls c.R.Peek with a short
// deadline instead of blocking indefinitely so it can be stopped
// without closing the connection out from under a still-active
// session. Peek leaves any buffered bytes in place rather than
// consuming them, so a command pipelined right behind the blocking
// one (legal — arrival order only requires the reply ordering, not
// that the client wait) is still there for the main loop's next
// ReadValue once this command returns; the probe simply stops
// watching once it sees the connection has input ready, since from
// then on the session is known alive and the caller's own
// timeout/wake channel governs how long it waits. The returned stop
// func must be called exactly once, before the caller resumes normal
// command reads on this connection.
func (c *Conn) WatchDisconnect() (dead <-chan struct{}, stop func()) {
	stopCh := make(chan struct{})
	deadCh := make(chan struct{})
	exitedCh := make(chan struct{})
	var once sync.Once

	go func() {
		defer close(exitedCh)
		for {
			select {
			case <-stopCh:
				return
			default:
			}
			_ = c.rwc.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
			if _, err := c.R.Peek(1); err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					continue
				}
				close(deadCh)
				return
			}
			return
		}
	}()

	stop = func() {
		once.Do(func() { close(stopCh) })
		<-exitedCh
		_ = c.rwc.SetReadDeadline(time.Time{})
	}
	return deadCh, stop
}

func (c *Conn) SetReplica(h *replication.ReplicaHandle) { c.replica = h }
func (c *Conn) Replica() *replication.ReplicaHandle     { return c.replica }

func (c *Conn) SetInExec(v bool) { c.inExec = v }
func (c *Conn) InExec() bool     { return c.inExec }

func (c *Conn) SetClosing()  { c.closing = true }
func (c *Conn) Closing() bool { return c.closing }

func (c *Conn) Close() {
	if c.subscriber != nil {
		close(c.subscriber.Outbox)
	}
	if c.replica != nil {
		c.srv.Master.Unregister(c.replica)
	}
	_ = c.rwc.Close()
}
