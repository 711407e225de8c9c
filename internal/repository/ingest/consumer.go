// Package ingest reads content items from the ingest stream via a consumer
// group. Entries are acknowledged by the pipeline only after the item is
// durably processed (record written, duplicate skipped, or terminally
// rejected).
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
)

// store is the consumer interface for stream operations (ISP).
type store interface {
	StreamGroupCreate(ctx context.Context, stream, group string) error
	StreamReadGroup(
		ctx context.Context, stream, group, consumer string, count int, block time.Duration,
	) ([]db.StreamEntry, error)
	StreamAck(ctx context.Context, stream, group string, ids ...string) error
	StreamAdd(ctx context.Context, stream string, fields map[string]string) (string, error)
}

// Config holds stream consumer settings.
type Config struct {
	Stream    string
	Group     string
	Consumer  string
	BatchSize int
	Block     time.Duration
}

// Message is one stream entry, parsed into a ContentItem when well-formed.
type Message struct {
	EntryID  string
	Item     *domain.ContentItem
	ParseErr error
}

// Consumer reads items from the ingest stream.
type Consumer struct {
	store store
	cfg   Config
}

// New creates a stream consumer.
func New(s store, cfg Config) *Consumer {
	return &Consumer{store: s, cfg: cfg}
}

// Init ensures the consumer group exists.
func (c *Consumer) Init(ctx context.Context) error {
	if err := c.store.StreamGroupCreate(ctx, c.cfg.Stream, c.cfg.Group); err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Fetch blocks up to the configured duration for new entries and parses
// them. Malformed entries are returned with ParseErr set so the caller can
// acknowledge and drop them instead of poisoning the stream.
func (c *Consumer) Fetch(ctx context.Context) ([]Message, error) {
	entries, err := c.store.StreamReadGroup(
		ctx, c.cfg.Stream, c.cfg.Group, c.cfg.Consumer, c.cfg.BatchSize, c.cfg.Block,
	)
	if err != nil {
		return nil, fmt.Errorf("read ingest stream: %w", err)
	}

	msgs := make([]Message, 0, len(entries))
	for _, e := range entries {
		item, parseErr := parseEntry(e.Fields)
		msgs = append(msgs, Message{EntryID: e.ID, Item: item, ParseErr: parseErr})
	}
	return msgs, nil
}

// Ack acknowledges processed entries.
func (c *Consumer) Ack(ctx context.Context, entryIDs ...string) error {
	if err := c.store.StreamAck(ctx, c.cfg.Stream, c.cfg.Group, entryIDs...); err != nil {
		return fmt.Errorf("ack ingest entries: %w", err)
	}
	return nil
}

// Publish appends an item to the ingest stream (collector-side helper).
func (c *Consumer) Publish(ctx context.Context, item *domain.ContentItem) (string, error) {
	id, err := c.store.StreamAdd(ctx, c.cfg.Stream, map[string]string{
		"id":           item.ID(),
		"raw_text":     item.RawText(),
		"title":        item.Title(),
		"source_id":    item.SourceID(),
		"published_at": item.PublishedAt().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("publish item %s: %w", item.ID(), err)
	}
	return id, nil
}

func parseEntry(fields map[string]string) (*domain.ContentItem, error) {
	publishedAt, err := time.Parse(time.RFC3339, fields["published_at"])
	if err != nil {
		publishedAt = time.Time{} // optional field
	}

	item, err := domain.NewContentItem(
		fields["id"], fields["raw_text"], fields["title"], fields["source_id"], publishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid item entry: %w", err)
	}
	return &item, nil
}
