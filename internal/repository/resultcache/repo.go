// Package resultcache is the shared analyzer-result cache tier, backed by
// the key-value store with TTL support. Entries are advisory: a read
// failure or decode failure is a miss, never an error to the caller.
package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
)

// store is the consumer interface for the shared cache tier (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo stores analyzer results in the shared tier.
type Repo struct {
	store     store
	keyPrefix string
	logger    *zap.Logger
}

// New creates a shared-tier cache repository.
func New(s store, keyPrefix string, logger *zap.Logger) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, logger: logger}
}

// entryDTO is the stored representation of a cached analyzer result.
// ExpiresAt travels with the value so the local tier can honor the original
// expiry after promotion.
type entryDTO struct {
	Analyzer   string             `json:"analyzer"`
	Version    string             `json:"version"`
	Labels     map[string]float64 `json:"labels,omitempty"`
	Confidence float64            `json:"confidence"`
	Evidence   []string           `json:"evidence,omitempty"`
	ComputedAt time.Time          `json:"computed_at"`
	ExpiresAt  time.Time          `json:"expires_at"`
}

// Get returns a cached result and its expiry. Missing, expired or
// undecodable entries report a miss.
func (r *Repo) Get(ctx context.Context, key string) (domain.AnalyzerResult, time.Time, bool) {
	data, err := r.store.Get(ctx, r.keyPrefix+key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			r.logger.Warn("Failed to read shared cache", zap.String("key", key), zap.Error(err))
		}
		return domain.AnalyzerResult{}, time.Time{}, false
	}

	var dto entryDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		r.logger.Warn("Failed to decode shared cache entry", zap.String("key", key), zap.Error(err))
		return domain.AnalyzerResult{}, time.Time{}, false
	}
	if !dto.ExpiresAt.After(time.Now()) {
		return domain.AnalyzerResult{}, time.Time{}, false
	}

	return domain.AnalyzerResult{
		Analyzer:   dto.Analyzer,
		Version:    dto.Version,
		Labels:     dto.Labels,
		Confidence: dto.Confidence,
		Evidence:   dto.Evidence,
		ComputedAt: dto.ComputedAt,
		Status:     domain.StatusOK,
	}, dto.ExpiresAt, true
}

// Put stores a result until expiresAt. Best-effort: failures are logged.
func (r *Repo) Put(ctx context.Context, key string, result domain.AnalyzerResult, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(entryDTO{
		Analyzer:   result.Analyzer,
		Version:    result.Version,
		Labels:     result.Labels,
		Confidence: result.Confidence,
		Evidence:   result.Evidence,
		ComputedAt: result.ComputedAt,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		r.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.store.SetWithTTL(ctx, r.keyPrefix+key, data, ttl); err != nil {
		r.logger.Warn("Failed to write shared cache", zap.String("key", key), zap.Error(err))
	}
}
