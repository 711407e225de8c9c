package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	KVStore
	HashStore
	StreamStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores the value only if the key does not exist yet.
	// Returns true when this call claimed the key.
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// StreamEntry is one entry read from a stream.
type StreamEntry struct {
	ID     string
	Fields map[string]string
}

// StreamStore provides consumer-group stream operations.
type StreamStore interface {
	StreamAdd(ctx context.Context, stream string, fields map[string]string) (string, error)
	StreamGroupCreate(ctx context.Context, stream, group string) error
	StreamReadGroup(
		ctx context.Context, stream, group, consumer string, count int, block time.Duration,
	) ([]StreamEntry, error)
	StreamAck(ctx context.Context, stream, group string, ids ...string) error
}
