package redis

import (
	"context"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/newsdex/internal/db"
)

// StreamAdd appends an entry to a stream and returns its generated ID.
func (s *Store) StreamAdd(ctx context.Context, stream string, fields map[string]string) (string, error) {
	cmd := s.b().Xadd().Key(stream).Id("*").FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	id, err := s.do(ctx, cmd.Build()).ToString()
	if err != nil {
		return "", &db.Error{Op: db.OpXAdd, Err: err}
	}
	return id, nil
}

// StreamGroupCreate creates a consumer group, creating the stream if needed.
// An already-existing group is not an error.
func (s *Store) StreamGroupCreate(ctx context.Context, stream, group string) error {
	cmd := s.b().XgroupCreate().Key(stream).Group(group).Id("$").Mkstream().Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "BUSYGROUP") {
			return nil
		}
		return &db.Error{Op: db.OpXGroup, Err: err}
	}
	return nil
}

// StreamReadGroup reads up to count new entries for a consumer, blocking up
// to the given duration. Returns an empty slice on block timeout.
func (s *Store) StreamReadGroup(
	ctx context.Context, stream, group, consumer string, count int, block time.Duration,
) ([]db.StreamEntry, error) {
	cmd := s.b().Xreadgroup().
		Group(group, consumer).
		Count(int64(count)).
		Block(block.Milliseconds()).
		Streams().Key(stream).Id(">").
		Build()

	res, err := s.do(ctx, cmd).AsXRead()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil // block timeout, nothing new
		}
		return nil, &db.Error{Op: db.OpXReadGroup, Err: err}
	}

	raw := res[stream]
	entries := make([]db.StreamEntry, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, db.StreamEntry{ID: e.ID, Fields: e.FieldValues})
	}
	return entries, nil
}

// StreamAck acknowledges processed entries for a consumer group.
func (s *Store) StreamAck(ctx context.Context, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	cmd := s.b().Xack().Key(stream).Group(group).Id(ids...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpXAck, Err: err}
	}
	return nil
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToUpper(re.Error()), strings.ToUpper(substr))
}
