package pipeline

import (
	"context"
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/repository/ingest"
	"github.com/kailas-cloud/newsdex/internal/usecase/cache"
)

// Fingerprinter derives the dedup identity of an item.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, item *domain.ContentItem) (domain.Fingerprint, error)
}

// DuplicateIndex is the atomic registration boundary for duplicate groups.
type DuplicateIndex interface {
	Register(ctx context.Context, itemID string, fp *domain.Fingerprint) (*domain.DuplicateGroup, bool, error)
	Canonical(itemID string) (string, bool)
}

// Cache is the two-tier analyzer-result cache.
type Cache interface {
	Get(ctx context.Context, key cache.Key) (domain.AnalyzerResult, bool)
	Put(ctx context.Context, key cache.Key, result domain.AnalyzerResult)
}

// Sink accepts completed analysis records. Write must be acknowledged
// before an item counts as durably processed.
type Sink interface {
	Write(ctx context.Context, rec *domain.AnalysisRecord) error
	GetByItem(ctx context.Context, itemID string) (domain.AnalysisRecord, error)
}

// Ingestor delivers content items from the ingest stream.
type Ingestor interface {
	Init(ctx context.Context) error
	Fetch(ctx context.Context) ([]ingest.Message, error)
	Ack(ctx context.Context, entryIDs ...string) error
}

// AnalyzerSpec binds an adapter to its dispatch settings. Weight feeds the
// fixed importance table used when merging confidences.
type AnalyzerSpec struct {
	Analyzer domain.Analyzer
	Timeout  time.Duration
	Weight   float64
}
