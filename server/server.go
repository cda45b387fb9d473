package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/kirov7/kuloydis"
	"github.com/kirov7/kuloydis/public"
	"github.com/kirov7/kuloydis/pubsub"
	"github.com/kirov7/kuloydis/replication"
	"github.com/kirov7/kuloydis/resp"
)

var ErrServerClosed = errors.New("kuloydis: server closed")

// Engine executes one parsed command against a session. It is
// implemented by server/database.Database; Server only depends on the
// interface to avoid importing the command registry.
type Engine interface {
	Exec(c *Conn, args [][]byte) []byte
}

// Server owns the shared singletons every connection's handler reaches
// through its Conn rather than ambient globals:
// the per-db keyspaces, the pub/sub hub, and the replication registry.
type Server struct {
	Addr   string
	Engine Engine

	DBs [public.NumDatabases]*kuloydis.Keyspace
	Hub *pubsub.Hub

	Master *replication.Master

	// Replica is non-nil when this server was started with --replicaof
	//; Role() reflects it.
	Replica *replication.Replica

	// Opts carries --dir/--dbfilename for CONFIG GET. It is
	// read-only after startup.
	Opts kuloydis.Options

	nextConnID uint64
	mu         sync.Mutex
	listener   net.Listener
	closed     int32
}

func New(addr string) *Server {
	s := &Server{Addr: addr, Hub: pubsub.NewHub(), Master: replication.NewMaster()}
	for i := range s.DBs {
		s.DBs[i] = kuloydis.NewKeyspace()
	}
	return s
}

func (s *Server) Role() string {
	if s.Replica != nil {
		return "slave"
	}
	return "master"
}

// ListenAndServe binds Addr and serves connections until Close is called.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	for {
		rwc, err := l.Accept()
		if err != nil {
			if atomic.LoadInt32(&s.closed) != 0 {
				return ErrServerClosed
			}
			log.Printf("kuloydis: accept error: %v", err)
			continue
		}
		id := atomic.AddUint64(&s.nextConnID, 1)
		go s.serveConn(newConn(s, rwc, id))
	}
}

func (s *Server) Close() error {
	atomic.StoreInt32(&s.closed, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) serveConn(c *Conn) {
	defer func() {
		if err := recover(); err != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Printf("kuloydis: panic serving %s: %v\n%s", c.RemoteAddr(), err, buf)
		}
		c.Close()
	}()

	log.Printf("kuloydis: new connection %s", c.RemoteAddr())
	for {
		v, err := c.R.ReadValue()
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				log.Printf("kuloydis: connection %s protocol error: %v", c.RemoteAddr(), err)
			}
			return
		}
		if v.Kind != resp.Array {
			_ = c.W.WriteError(fmt.Sprintf("ERR Protocol error: expected array, got %q", byte(v.Kind)))
			_ = c.W.Flush()
			return
		}
		args := v.StrArgs()
		if len(args) == 0 {
			continue
		}

		reply := s.Engine.Exec(c, args)
		if len(reply) > 0 {
			if err := c.W.WriteRaw(reply); err != nil {
				return
			}
			if err := c.W.Flush(); err != nil {
				return
			}
		}
		if c.Closing() {
			return
		}
	}
}
