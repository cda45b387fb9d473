package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleReplies(t *testing.T) {
	assert.Equal(t, "+OK\r\n", string(MakeOkReply().ToBytes()))
	assert.Equal(t, "+PONG\r\n", string(MakePongReply().ToBytes()))
	assert.Equal(t, "+QUEUED\r\n", string(MakeStatusReply("QUEUED").ToBytes()))
	assert.Equal(t, ":7\r\n", string(MakeIntReply(7).ToBytes()))
	assert.Equal(t, "$3\r\nfoo\r\n", string(MakeBulkReply([]byte("foo")).ToBytes()))
	assert.Equal(t, "$-1\r\n", string(MakeNullBulkReply().ToBytes()))
	assert.Equal(t, "*-1\r\n", string(MakeNullArrayReply().ToBytes()))
	assert.Equal(t, "*0\r\n", string(MakeEmptyArrayReply().ToBytes()))
}

func TestMultiBulkReplyNests(t *testing.T) {
	r := MakeMultiBulkReply([]Reply{
		MakeBulkReply([]byte("a")),
		MakeIntReply(1),
	})
	assert.Equal(t, "*2\r\n$1\r\na\r\n:1\r\n", string(r.ToBytes()))
}

func TestStringArrayReply(t *testing.T) {
	r := MakeStringArrayReply([][]byte{[]byte("x"), []byte("y")})
	assert.Equal(t, "*2\r\n$1\r\nx\r\n$1\r\ny\r\n", string(r.ToBytes()))
}

func TestErrorReplies(t *testing.T) {
	e := MakeErrReply("ERR boom")
	assert.Equal(t, "-ERR boom\r\n", string(e.ToBytes()))
	assert.Equal(t, "ERR boom", e.Error())
	assert.True(t, IsErrorReply(e))
	assert.False(t, IsErrorReply(MakeOkReply()))

	assert.Contains(t, MakeArgNumErrReply("get").Error(), "get")
	assert.Contains(t, MakeUnknownCommandErrReply("nope").Error(), "nope")
}

func TestRawReplyIsVerbatim(t *testing.T) {
	r := MakeRawReply([]byte("+FULLRESYNC abc 0\r\n$0\r\n"))
	assert.Equal(t, "+FULLRESYNC abc 0\r\n$0\r\n", string(r.ToBytes()))
}
