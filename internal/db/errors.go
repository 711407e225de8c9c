package db

import "errors"

// ErrKeyNotFound signals a missing key; drivers translate nil replies to it.
var ErrKeyNotFound = errors.New("db: key not found")

// Op constants map to Redis/Valkey command names for error context.
const (
	OpGet        = "GET"
	OpSet        = "SET"
	OpSetNX      = "SET NX"
	OpDel        = "DEL"
	OpExists     = "EXISTS"
	OpHSet       = "HSET"
	OpHGetAll    = "HGETALL"
	OpXAdd       = "XADD"
	OpXGroup     = "XGROUP CREATE"
	OpXReadGroup = "XREADGROUP"
	OpXAck       = "XACK"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
