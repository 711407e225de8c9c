// Package cache is the two-tier analyzer-result cache: a process-local,
// size-bounded LRU in front of the shared store tier. Entries are advisory
// and keyed by (contentHash, analyzer, analyzerVersion); an expired entry is
// a miss in both tiers.
package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/metrics"
)

// Key identifies a cached analyzer result. A new analyzer version
// changes the key, superseding older cached results.
type Key struct {
	ContentHash string
	Analyzer    string
	Version     string
}

func (k Key) String() string {
	return "res:" + k.ContentHash + ":" + k.Analyzer + ":" + k.Version
}

// SharedTier is the networked cache tier consulted on local misses.
type SharedTier interface {
	Get(ctx context.Context, key string) (domain.AnalyzerResult, time.Time, bool)
	Put(ctx context.Context, key string, result domain.AnalyzerResult, expiresAt time.Time)
}

// localEntry carries the expiry alongside the value; the LRU itself has no
// notion of TTL.
type localEntry struct {
	result    domain.AnalyzerResult
	expiresAt time.Time
}

// Manager coordinates the two tiers.
type Manager struct {
	local  *lru.Cache[string, localEntry]
	shared SharedTier
	ttls   map[string]time.Duration
	logger *zap.Logger
}

// New creates a cache manager. size bounds the local tier; ttls maps
// analyzer name to entry lifetime (configuration input, not hard-coded).
func New(size int, shared SharedTier, ttls map[string]time.Duration, logger *zap.Logger) (*Manager, error) {
	local, err := lru.New[string, localEntry](size)
	if err != nil {
		return nil, err
	}
	return &Manager{local: local, shared: shared, ttls: ttls, logger: logger}, nil
}

// TTLFor returns the configured lifetime for an analyzer's results.
func (m *Manager) TTLFor(analyzer string) time.Duration {
	if ttl, ok := m.ttls[analyzer]; ok {
		return ttl
	}
	return time.Hour
}

// Get returns a live cached result. Local tier first; on a shared-tier hit
// the value is promoted locally with its original expiry.
func (m *Manager) Get(ctx context.Context, key Key) (domain.AnalyzerResult, bool) {
	ks := key.String()

	if e, ok := m.local.Get(ks); ok {
		if e.expiresAt.After(time.Now()) {
			metrics.CacheTotal.WithLabelValues("local", "hit").Inc()
			return e.result, true
		}
		m.local.Remove(ks)
	}
	metrics.CacheTotal.WithLabelValues("local", "miss").Inc()

	result, expiresAt, ok := m.shared.Get(ctx, ks)
	if !ok {
		metrics.CacheTotal.WithLabelValues("shared", "miss").Inc()
		return domain.AnalyzerResult{}, false
	}
	metrics.CacheTotal.WithLabelValues("shared", "hit").Inc()

	m.local.Add(ks, localEntry{result: result, expiresAt: expiresAt})
	return result, true
}

// Put writes a result through both tiers with the analyzer's TTL.
func (m *Manager) Put(ctx context.Context, key Key, result domain.AnalyzerResult) {
	expiresAt := time.Now().Add(m.TTLFor(key.Analyzer))
	m.local.Add(key.String(), localEntry{result: result, expiresAt: expiresAt})
	m.shared.Put(ctx, key.String(), result, expiresAt)
}
