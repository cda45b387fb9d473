package public

import "errors"

var (
	ErrKeyIsEmpty    = errors.New("the key can not be empty")
	ErrWrongType     = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	ErrNotInteger    = errors.New("ERR value is not an integer or out of range")
	ErrNotFloat      = errors.New("ERR value is not a valid float")
	ErrSyntax        = errors.New("ERR syntax error")
	ErrNoSuchKey     = errors.New("ERR no such key")
	ErrHeapEmpty     = errors.New("heap is empty")
	ErrStreamID      = errors.New("ERR The ID specified in XADD is equal or smaller than the target stream top item")
	ErrStreamIDZero  = errors.New("ERR The ID specified in XADD must be greater than 0-0")
	ErrInvalidGeo    = errors.New("ERR invalid longitude,latitude pair")
	ErrNoMulti       = errors.New("ERR EXEC without MULTI")
	ErrNestedMulti   = errors.New("ERR MULTI calls can not be nested")
	ErrExecAbort     = errors.New("EXECABORT Transaction discarded because of previous errors.")
	ErrSubscribeOnly = errors.New("ERR only (P)SUBSCRIBE / (P)UNSUBSCRIBE / PING / QUIT are allowed in this context")
	ErrNotReplica    = errors.New("ERR not a replica connection")
	ErrDirOccupied   = errors.New("db directory is occupied")
)
