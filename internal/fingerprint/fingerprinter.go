// Package fingerprint derives the dedup identity of a content item:
// a deterministic hash of its normalized text plus a semantic embedding.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

// Embedder vectorizes normalized text. Failure is non-fatal for fingerprinting.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Fingerprinter computes content fingerprints.
type Fingerprinter struct {
	embedder  Embedder
	minLength int
	logger    *zap.Logger
}

// New creates a Fingerprinter. minLength is the minimum normalized text
// length accepted; shorter items are rejected with ErrInsufficientContent.
func New(embedder Embedder, minLength int, logger *zap.Logger) *Fingerprinter {
	return &Fingerprinter{embedder: embedder, minLength: minLength, logger: logger}
}

// Fingerprint normalizes the item text, hashes it and requests an embedding.
// An embedding failure degrades the fingerprint (EmbeddingMissing=true) so
// exact-hash dedup can still proceed; it never fails the call.
func (f *Fingerprinter) Fingerprint(ctx context.Context, item *domain.ContentItem) (domain.Fingerprint, error) {
	normalized := Normalize(item.Title() + "\n" + item.RawText())
	if len(normalized) < f.minLength {
		return domain.Fingerprint{}, fmt.Errorf(
			"normalized text is %d chars, need %d: %w",
			len(normalized), f.minLength, domain.ErrInsufficientContent,
		)
	}

	sum := sha256.Sum256([]byte(normalized))
	fp := domain.Fingerprint{
		ContentHash: hex.EncodeToString(sum[:]),
		ComputedAt:  time.Now().UTC(),
	}

	res, err := f.embedder.Embed(ctx, normalized)
	if err != nil {
		f.logger.Warn("Embedding unavailable, degrading to exact-hash dedup",
			zap.String("item_id", item.ID()),
			zap.Error(err),
		)
		fp.EmbeddingMissing = true
		return fp, nil
	}

	fp.Embedding = res.Embedding
	fp.EmbeddingModel = res.Model
	return fp, nil
}
