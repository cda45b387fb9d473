package resp

import "strconv"

// ByteWriter builds a RESP-encoded []byte in memory. It exists so
// resp/reply's Reply.ToBytes() implementations can compose the encoded
// forms of nested replies (MultiBulkReply) without going through a
// connection-backed Writer.
type ByteWriter struct {
	buf []byte
}

func NewByteWriter() *ByteWriter { return &ByteWriter{} }

func (w *ByteWriter) Bytes() []byte { return w.buf }

func (w *ByteWriter) WriteRaw(b []byte) { w.buf = append(w.buf, b...) }

func (w *ByteWriter) WriteBulk(b []byte) {
	w.buf = append(w.buf, '$')
	w.buf = strconv.AppendInt(w.buf, int64(len(b)), 10)
	w.buf = append(w.buf, '\r', '\n')
	w.buf = append(w.buf, b...)
	w.buf = append(w.buf, '\r', '\n')
}

func (w *ByteWriter) WriteArrayHeader(n int) {
	w.buf = append(w.buf, '*')
	w.buf = strconv.AppendInt(w.buf, int64(n), 10)
	w.buf = append(w.buf, '\r', '\n')
}

func (w *ByteWriter) WriteInteger(n int64) {
	w.buf = append(w.buf, ':')
	w.buf = strconv.AppendInt(w.buf, n, 10)
	w.buf = append(w.buf, '\r', '\n')
}
