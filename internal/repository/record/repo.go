// Package record is the result sink: it stores merged analysis records and
// resolves the canonical record for duplicate short-circuits. Unlike the
// cache tiers, writes here are part of the durability contract — a failed
// write fails the item.
package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
)

// store is the consumer interface for the result sink (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo persists analysis records.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a result sink repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

func (r *Repo) recordKey(recordID string) string {
	return r.keyPrefix + "rec:" + recordID
}

func (r *Repo) itemPointerKey(itemID string) string {
	return r.keyPrefix + "rec:item:" + itemID
}

// Write stores the record and points the item at it. The write must succeed
// before the item counts as durably processed; re-analysis overwrites the
// pointer but never an existing record.
func (r *Repo) Write(ctx context.Context, rec *domain.AnalysisRecord) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.RecordID, err)
	}
	if err := r.store.Set(ctx, r.recordKey(rec.RecordID), data); err != nil {
		return fmt.Errorf("write record %s: %w", rec.RecordID, err)
	}
	if err := r.store.Set(ctx, r.itemPointerKey(rec.ItemID), []byte(rec.RecordID)); err != nil {
		return fmt.Errorf("point item %s at record %s: %w", rec.ItemID, rec.RecordID, err)
	}
	return nil
}

// GetByItem resolves the current record for an item (typically the
// canonical item of a duplicate group).
func (r *Repo) GetByItem(ctx context.Context, itemID string) (domain.AnalysisRecord, error) {
	recordID, err := r.store.Get(ctx, r.itemPointerKey(itemID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.AnalysisRecord{}, fmt.Errorf("item %s: %w", itemID, domain.ErrItemNotFound)
		}
		return domain.AnalysisRecord{}, fmt.Errorf("resolve record for item %s: %w", itemID, err)
	}

	data, err := r.store.Get(ctx, r.recordKey(string(recordID)))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.AnalysisRecord{}, fmt.Errorf("record %s: %w", recordID, domain.ErrItemNotFound)
		}
		return domain.AnalysisRecord{}, fmt.Errorf("read record %s: %w", recordID, err)
	}

	rec, err := unmarshalRecord(data)
	if err != nil {
		return domain.AnalysisRecord{}, fmt.Errorf("decode record %s: %w", recordID, err)
	}
	return rec, nil
}
