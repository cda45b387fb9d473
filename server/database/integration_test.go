package database

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/kirov7/kuloydis/resp"
	"github.com/kirov7/kuloydis/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestServer spins up a real server.Server on a loopback port and
// returns its address. Tests drive it end to end over the wire rather
// than calling Exec directly, since server.Conn has no exported
// constructor outside an accepted connection.
func startTestServer(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := server.New(l.Addr().String())
	srv.Engine = NewDatabase(srv)

	go srv.Serve(l)
	t.Cleanup(func() { _ = srv.Close() })

	return l.Addr().String()
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *resp.Reader
	w    *resp.Writer
}

func dialTestClient(t *testing.T, addr string) *testClient {
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn, r: resp.NewReader(conn), w: resp.NewWriter(conn)}
}

func (c *testClient) do(args ...string) resp.Value {
	argBytes := make([][]byte, len(args))
	for i, a := range args {
		argBytes[i] = []byte(a)
	}
	_, err := c.conn.Write(resp.EncodeCommand(argBytes))
	require.NoError(c.t, err)
	return c.read()
}

func (c *testClient) read() resp.Value {
	v, err := c.r.ReadValue()
	require.NoError(c.t, err)
	return v
}

func (c *testClient) sendRaw(args ...string) {
	argBytes := make([][]byte, len(args))
	for i, a := range args {
		argBytes[i] = []byte(a)
	}
	_, err := c.conn.Write(resp.EncodeCommand(argBytes))
	require.NoError(c.t, err)
}

func TestGetSetRoundTrip(t *testing.T) {
	addr := startTestServer(t)
	c := dialTestClient(t, addr)

	v := c.do("SET", "k", "v")
	assert.Equal(t, resp.SimpleString, v.Kind)
	assert.Equal(t, "OK", string(v.Str))

	v = c.do("GET", "k")
	assert.Equal(t, resp.Bulk, v.Kind)
	assert.Equal(t, "v", string(v.Str))

	v = c.do("GET", "missing")
	assert.True(t, v.Null)
}

func TestMultiExecIsAtomicAndOrdered(t *testing.T) {
	addr := startTestServer(t)
	c := dialTestClient(t, addr)

	assert.Equal(t, "OK", string(c.do("MULTI").Str))
	assert.Equal(t, "QUEUED", string(c.do("SET", "a", "1").Str))
	assert.Equal(t, "QUEUED", string(c.do("SET", "b", "2").Str))

	results := c.do("EXEC")
	require.Equal(t, resp.Array, results.Kind)
	require.Len(t, results.Array, 2)
	assert.Equal(t, "OK", string(results.Array[0].Str))
	assert.Equal(t, "OK", string(results.Array[1].Str))

	assert.Equal(t, "1", string(c.do("GET", "a").Str))
	assert.Equal(t, "2", string(c.do("GET", "b").Str))
}

func TestMultiDiscardAbortsQueue(t *testing.T) {
	addr := startTestServer(t)
	c := dialTestClient(t, addr)

	c.do("MULTI")
	c.do("SET", "a", "1")
	assert.Equal(t, "OK", string(c.do("DISCARD").Str))
	assert.True(t, c.do("GET", "a").Null)
}

func TestBLPopWakesOnPush(t *testing.T) {
	addr := startTestServer(t)
	blocker := dialTestClient(t, addr)
	pusher := dialTestClient(t, addr)

	done := make(chan resp.Value, 1)
	go func() {
		_, err := blocker.conn.Write(resp.EncodeCommand([][]byte{[]byte("BLPOP"), []byte("q"), []byte("0")}))
		require.NoError(t, err)
		done <- blocker.read()
	}()

	time.Sleep(50 * time.Millisecond) // give BLPOP time to park
	pusher.do("RPUSH", "q", "hello")

	select {
	case v := <-done:
		require.Equal(t, resp.Array, v.Kind)
		require.Len(t, v.Array, 2)
		assert.Equal(t, "q", string(v.Array[0].Str))
		assert.Equal(t, "hello", string(v.Array[1].Str))
	case <-time.After(2 * time.Second):
		t.Fatal("BLPOP never woke up")
	}
}

func TestBLPopDisconnectCancelsParkedWaiter(t *testing.T) {
	addr := startTestServer(t)
	gone := dialTestClient(t, addr)
	waiter := dialTestClient(t, addr)
	pusher := dialTestClient(t, addr)

	gone.sendRaw("BLPOP", "q", "0")
	time.Sleep(50 * time.Millisecond) // let it park
	require.NoError(t, gone.conn.Close())
	time.Sleep(200 * time.Millisecond) // let the disconnect probe notice

	done := make(chan resp.Value, 1)
	go func() {
		waiter.sendRaw("BLPOP", "q", "0")
		done <- waiter.read()
	}()
	time.Sleep(50 * time.Millisecond) // let the second BLPOP park
	pusher.do("RPUSH", "q", "hello")

	select {
	case v := <-done:
		require.Equal(t, resp.Array, v.Kind)
		require.Len(t, v.Array, 2)
		assert.Equal(t, "q", string(v.Array[0].Str))
		assert.Equal(t, "hello", string(v.Array[1].Str))
	case <-time.After(2 * time.Second):
		t.Fatal("the still-connected BLPOP never woke up; the disconnected waiter likely consumed the push")
	}
}

func TestBLPopDoesNotDropPipelinedCommand(t *testing.T) {
	addr := startTestServer(t)
	c := dialTestClient(t, addr)
	pusher := dialTestClient(t, addr)

	// Pipeline a PING immediately behind the BLPOP, without waiting for
	// a reply to either. The disconnect probe parked underneath BLPOP
	// must not consume the PING's bytes off the wire.
	c.sendRaw("BLPOP", "q", "0")
	c.sendRaw("PING")
	time.Sleep(150 * time.Millisecond) // let the probe poll at least once

	pusher.do("RPUSH", "q", "hello")

	blpop := c.read()
	require.Equal(t, resp.Array, blpop.Kind)
	require.Len(t, blpop.Array, 2)
	assert.Equal(t, "hello", string(blpop.Array[1].Str))

	pong := c.read()
	assert.Equal(t, resp.SimpleString, pong.Kind)
	assert.Equal(t, "PONG", string(pong.Str))
}

func TestBLPopTimesOutWithNullArray(t *testing.T) {
	addr := startTestServer(t)
	c := dialTestClient(t, addr)

	start := time.Now()
	_, err := c.conn.Write(resp.EncodeCommand([][]byte{[]byte("BLPOP"), []byte("empty"), []byte("1")}))
	require.NoError(t, err)
	v := c.read()

	assert.True(t, v.Null)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestPublishSubscribe(t *testing.T) {
	addr := startTestServer(t)
	sub := dialTestClient(t, addr)
	pub := dialTestClient(t, addr)

	ack := sub.do("SUBSCRIBE", "news")
	require.Equal(t, resp.Array, ack.Kind)
	require.Len(t, ack.Array, 3)
	assert.Equal(t, "subscribe", string(ack.Array[0].Str))
	assert.Equal(t, "news", string(ack.Array[1].Str))
	assert.Equal(t, int64(1), ack.Array[2].Int)

	n := pub.do("PUBLISH", "news", "hello")
	assert.Equal(t, int64(1), n.Int)

	msg := sub.read()
	require.Equal(t, resp.Array, msg.Kind)
	require.Len(t, msg.Array, 3)
	assert.Equal(t, "message", string(msg.Array[0].Str))
	assert.Equal(t, "news", string(msg.Array[1].Str))
	assert.Equal(t, "hello", string(msg.Array[2].Str))
}

func TestReplicationHandshakeAndPropagation(t *testing.T) {
	addr := startTestServer(t)
	replica := dialTestClient(t, addr)
	client := dialTestClient(t, addr)

	assert.Equal(t, "OK", string(replica.do("REPLCONF", "listening-port", "6380").Str))
	assert.Equal(t, "OK", string(replica.do("REPLCONF", "capa", "psync2").Str))

	replica.sendRaw("PSYNC", "?", "-1")
	full := replica.read()
	assert.Equal(t, resp.SimpleString, full.Kind)
	assert.Contains(t, string(full.Str), "FULLRESYNC")

	rdb, err := replica.r.ReadRawBulk()
	require.NoError(t, err)
	assert.Len(t, rdb, 0)

	client.do("SET", "k", "v")

	propagated := replica.read()
	require.Equal(t, resp.Array, propagated.Kind)
	assert.Equal(t, [][]byte{[]byte("SET"), []byte("k"), []byte("v")}, propagated.StrArgs())

	info := client.do("INFO", "replication")
	assert.Contains(t, string(info.Str), "role:master")

	setFrameLen := len(resp.EncodeCommand([][]byte{[]byte("SET"), []byte("k"), []byte("v")}))

	ackDone := make(chan struct{})
	go func() {
		getack := replica.read()
		require.Equal(t, resp.Array, getack.Kind)
		replica.sendRaw("REPLCONF", "ACK", strconv.Itoa(setFrameLen))
		close(ackDone)
	}()

	n := client.do("WAIT", "1", "1000")
	<-ackDone
	assert.Equal(t, int64(1), n.Int)
}

func TestSortedSetAddAndRange(t *testing.T) {
	addr := startTestServer(t)
	c := dialTestClient(t, addr)

	n := c.do("ZADD", "z", "1", "a", "2", "b")
	assert.Equal(t, int64(2), n.Int)

	v := c.do("ZRANGE", "z", "0", "-1")
	require.Equal(t, resp.Array, v.Kind)
	require.Len(t, v.Array, 2)
	assert.Equal(t, "a", string(v.Array[0].Str))
	assert.Equal(t, "b", string(v.Array[1].Str))
}
