package replication

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/kirov7/kuloydis/resp"
)

// Applier applies a replicated write command to the local keyspace with
// replies suppressed. The concrete
// implementation lives above this package (it re-enters the command
// dispatcher) to avoid an import cycle between replication and the
// command registry.
type Applier interface {
	Apply(args [][]byte)
}

// Replica is the replica-side connection to a master: the handshake plus
// the ongoing command-stream reader.
type Replica struct {
	conn net.Conn
	r    *resp.Reader
	w    *resp.Writer

	mu              sync.Mutex
	processedOffset int64

	MasterHost string
	MasterPort int
}

// Dial performs the replica-initiated handshake:
// PING, REPLCONF listening-port, REPLCONF capa psync2, PSYNC ? -1, then
// reads the FULLRESYNC line and the RDB snapshot bulk. It returns the
// connected Replica and the raw snapshot bytes (an abstract payload;
// this package does not decode it).
func Dial(host string, port int, listeningPort int) (*Replica, []byte, error) {
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, nil, err
	}
	rp := &Replica{conn: conn, r: resp.NewReader(conn), w: resp.NewWriter(conn), MasterHost: host, MasterPort: port}

	steps := [][][]byte{
		{[]byte("PING")},
		{[]byte("REPLCONF"), []byte("listening-port"), []byte(strconv.Itoa(listeningPort))},
		{[]byte("REPLCONF"), []byte("capa"), []byte("psync2")},
		{[]byte("PSYNC"), []byte("?"), []byte("-1")},
	}
	for _, args := range steps {
		if _, err := conn.Write(resp.EncodeCommand(args)); err != nil {
			return nil, nil, err
		}
		if _, err := rp.r.ReadValue(); err != nil {
			return nil, nil, err
		}
	}
	rdb, err := rp.r.ReadRawBulk()
	if err != nil {
		return nil, nil, err
	}
	return rp, rdb, nil
}

// Run reads RESP command arrays from the master stream until the
// connection closes, applying each through applier and tracking
// processed-offset in bytes of commands applied. REPLCONF GETACK * is
// answered inline with the offset value from before this frame is
// counted.
func (rp *Replica) Run(applier Applier) error {
	for {
		v, err := rp.r.ReadValue()
		if err != nil {
			return err
		}
		args := v.StrArgs()
		if len(args) == 0 {
			continue
		}
		frameLen := int64(len(resp.EncodeCommand(args)))
		name := strings.ToLower(string(args[0]))

		if name == "replconf" && len(args) == 3 && strings.ToLower(string(args[1])) == "getack" {
			rp.mu.Lock()
			before := rp.processedOffset
			rp.mu.Unlock()
			ack := resp.EncodeCommand([][]byte{
				[]byte("REPLCONF"), []byte("ACK"), []byte(strconv.FormatInt(before, 10)),
			})
			if _, err := rp.conn.Write(ack); err != nil {
				return err
			}
			rp.mu.Lock()
			rp.processedOffset += frameLen
			rp.mu.Unlock()
			continue
		}

		applier.Apply(args)

		rp.mu.Lock()
		rp.processedOffset += frameLen
		rp.mu.Unlock()
	}
}

func (rp *Replica) ProcessedOffset() int64 {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return rp.processedOffset
}

func (rp *Replica) Close() error { return rp.conn.Close() }
