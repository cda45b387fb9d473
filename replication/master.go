// Package replication implements the master-side replica registry and
// command propagation, and the replica-side handshake and stream
// application.
package replication

import (
	"crypto/rand"
	"encoding/hex"
	"net"
	"sync"
	"time"

	"github.com/kirov7/kuloydis/resp"
)

// generateReplID produces a 40-character lowercase hex string, matching
// real Redis's master_replid format.
func generateReplID() string {
	b := make([]byte, 20)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ReplicaHandle is one registered replica connection on the master side.
type ReplicaHandle struct {
	ID     uint64
	Conn   net.Conn
	outbox chan []byte
	done   chan struct{}
}

func (h *ReplicaHandle) writeLoop() {
	for {
		select {
		case frame := <-h.outbox:
			if _, err := h.Conn.Write(frame); err != nil {
				return
			}
		case <-h.done:
			return
		}
	}
}

func (h *ReplicaHandle) send(frame []byte) {
	select {
	case h.outbox <- frame:
	default:
	}
}

// Master is the replication registry a server holds regardless of
// whether any replica has ever connected: INFO and WAIT answer from it
// even with zero registered replicas.
type Master struct {
	mu       sync.Mutex
	cond     *sync.Cond
	replID   string
	offset   int64
	wrote    bool
	nextID   uint64
	replicas map[uint64]*ReplicaHandle
	acks     map[uint64]int64
}

func NewMaster() *Master {
	m := &Master{
		replID:   generateReplID(),
		replicas: make(map[uint64]*ReplicaHandle),
		acks:     make(map[uint64]int64),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *Master) ReplID() string { return m.replID }

func (m *Master) Offset() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offset
}

// RegisterReplica is called once a connection completes PSYNC. It
// starts the handle's write loop and returns the handle the PSYNC
// command handler keeps on the owning Conn.
func (m *Master) RegisterReplica(conn net.Conn) *ReplicaHandle {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	h := &ReplicaHandle{ID: id, Conn: conn, outbox: make(chan []byte, 1024), done: make(chan struct{})}
	m.replicas[id] = h
	m.acks[id] = 0
	m.mu.Unlock()

	go h.writeLoop()
	return h
}

func (m *Master) Unregister(h *ReplicaHandle) {
	m.mu.Lock()
	delete(m.replicas, h.ID)
	delete(m.acks, h.ID)
	m.mu.Unlock()
	close(h.done)
}

func (m *Master) ReplicaCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replicas)
}

// Propagate serializes args as a RESP array and appends it to every
// registered replica's outbox, advancing repl-offset by the frame's byte
// length. Only write commands that were
// successfully applied are ever passed here.
func (m *Master) Propagate(args [][]byte) {
	frame := resp.EncodeCommand(args)

	m.mu.Lock()
	m.offset += int64(len(frame))
	m.wrote = true
	handles := make([]*ReplicaHandle, 0, len(m.replicas))
	for _, h := range m.replicas {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.send(frame)
	}
}

// Ack records a replica's GETACK response.
func (m *Master) Ack(id uint64, offset int64) {
	m.mu.Lock()
	m.acks[id] = offset
	m.mu.Unlock()
	m.cond.Broadcast()
}

var getackFrame = resp.EncodeCommand([][]byte{[]byte("REPLCONF"), []byte("GETACK"), []byte("*")})

// Wait implements WAIT numreplicas timeout-ms: it records the
// current offset as target, issues GETACK to every replica, and blocks
// until numReplicas have acked at least target or timeout elapses (0 =
// infinite). If no write has ever been propagated it returns the replica
// count immediately without issuing GETACK.
func (m *Master) Wait(numReplicas int, timeout time.Duration) int {
	m.mu.Lock()
	if !m.wrote {
		n := len(m.replicas)
		m.mu.Unlock()
		return n
	}
	target := m.offset
	handles := make([]*ReplicaHandle, 0, len(m.replicas))
	for _, h := range m.replicas {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.send(getackFrame)
	}

	satisfied := func() int {
		count := 0
		for _, h := range handles {
			if m.acks[h.ID] >= target {
				count++
			}
		}
		return count
	}

	deadline := time.Now().Add(timeout)
	infinite := timeout == 0

	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		if c := satisfied(); c >= numReplicas || len(handles) == 0 {
			return c
		}
		if !infinite {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return satisfied()
			}
			timer := time.AfterFunc(remaining, func() { m.cond.Broadcast() })
			m.cond.Wait()
			timer.Stop()
			continue
		}
		m.cond.Wait()
	}
}
