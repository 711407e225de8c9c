// Package dupindex implements the duplicate index: exact-hash and
// semantic-similarity duplicate detection over a continuous item stream.
//
// The index is the single ownership boundary for duplicate groups. All
// mutation goes through the atomic Register path; the in-memory state is
// sharded by hash prefix for exact lookups and backed by the store for
// cross-instance hash claims (SET NX) and group durability.
package dupindex

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/metrics"
)

// store is the consumer interface for index persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// entry is one registered fingerprint available for nearest-neighbor scans.
type entry struct {
	itemID    string
	embedding []float32
	model     string
}

// shard holds the exact-hash map and scan entries for one hash prefix.
type shard struct {
	mu      sync.RWMutex
	byHash  map[string]string // contentHash -> canonicalID
	entries []entry
}

// Config holds index settings.
type Config struct {
	SimilarityThreshold float64
	Shards              int
	KeyPrefix           string
}

// Index is the queryable duplicate-group store.
type Index struct {
	store  store
	cfg    Config
	logger *zap.Logger

	// regMu serializes group mutation so two concurrent first-seen items
	// can never both become canonical. Lookups take the read side.
	regMu  sync.RWMutex
	shards []*shard
	groups map[string]*domain.DuplicateGroup // canonicalID -> group
	items  map[string]string                 // itemID -> canonicalID
}

// New creates a duplicate index.
func New(s store, cfg Config, logger *zap.Logger) *Index {
	if cfg.Shards <= 0 {
		cfg.Shards = 16
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.85
	}
	shards := make([]*shard, cfg.Shards)
	for i := range shards {
		shards[i] = &shard{byHash: make(map[string]string)}
	}
	return &Index{
		store:  s,
		cfg:    cfg,
		logger: logger,
		shards: shards,
		groups: make(map[string]*domain.DuplicateGroup),
		items:  make(map[string]string),
	}
}

// shardFor picks a shard by hash prefix.
func (i *Index) shardFor(contentHash string) *shard {
	if contentHash == "" {
		return i.shards[0]
	}
	return i.shards[int(contentHash[0])%len(i.shards)]
}

// Lookup checks a fingerprint against the index without registering it.
// Exact hash first, then nearest neighbor over stored embeddings.
// Returns a snapshot of the matched group, or nil when the item is unique.
func (i *Index) Lookup(ctx context.Context, fp *domain.Fingerprint) *domain.DuplicateGroup {
	i.regMu.RLock()
	defer i.regMu.RUnlock()

	sh := i.shardFor(fp.ContentHash)
	if canonicalID, ok := sh.byHash[fp.ContentHash]; ok {
		return snapshot(i.groups[canonicalID])
	}

	if best, score := i.nearestLocked(fp); best != "" && score >= i.cfg.SimilarityThreshold {
		return snapshot(i.groups[i.items[best]])
	}

	_ = ctx
	return nil
}

// Register inserts a fingerprint, joining an existing duplicate group or
// seeding a new one. First match wins: exact hash, then highest-similarity
// semantic candidate at or above the threshold. Idempotent: re-registering
// an item returns its existing group unchanged.
//
// Returns the (snapshot of the) group and whether the item is a duplicate
// of an earlier canonical item.
func (i *Index) Register(ctx context.Context, itemID string, fp *domain.Fingerprint) (*domain.DuplicateGroup, bool, error) {
	i.regMu.Lock()
	defer i.regMu.Unlock()

	// Idempotency: already registered.
	if canonicalID, ok := i.items[itemID]; ok {
		g := i.groups[canonicalID]
		return snapshot(g), itemID != canonicalID, nil
	}

	// 1. Exact hash match against this instance's index.
	sh := i.shardFor(fp.ContentHash)
	if canonicalID, ok := sh.byHash[fp.ContentHash]; ok {
		g := i.joinLocked(ctx, itemID, canonicalID, fp, domain.MatchExact, 1.0)
		metrics.DedupTotal.WithLabelValues(string(domain.MatchExact)).Inc()
		return snapshot(g), true, nil
	}

	// 2. Cross-instance claim on the content hash. Losing the claim means
	// another writer saw this content first; adopt its group.
	winner, err := i.claimHash(ctx, fp.ContentHash, itemID)
	if err == nil && winner != "" && winner != itemID {
		g, adoptErr := i.adoptLocked(ctx, winner, fp.ContentHash)
		if adoptErr == nil {
			g = i.joinLocked(ctx, itemID, g.CanonicalID(), fp, domain.MatchExact, 1.0)
			metrics.DedupTotal.WithLabelValues(string(domain.MatchExact)).Inc()
			return snapshot(g), true, nil
		}
		i.logger.Warn("Failed to adopt remote duplicate group, continuing locally",
			zap.String("item_id", itemID), zap.String("winner", winner), zap.Error(adoptErr))
	}
	if err != nil {
		i.logger.Warn("Hash claim failed, degrading to in-process dedup",
			zap.String("item_id", itemID), zap.Error(err))
	}

	// 3. Semantic nearest neighbor (only with a comparable embedding).
	if !fp.EmbeddingMissing {
		if best, score := i.nearestLocked(fp); best != "" && score >= i.cfg.SimilarityThreshold {
			g := i.joinLocked(ctx, itemID, i.items[best], fp, domain.MatchSemantic, score)
			metrics.DedupTotal.WithLabelValues(string(domain.MatchSemantic)).Inc()
			return snapshot(g), true, nil
		}
	}

	// 4. Unique: the item seeds a new group with itself as canonical.
	g := domain.NewDuplicateGroup(itemID)
	i.groups[itemID] = g
	i.insertLocked(itemID, itemID, fp)
	i.persist(ctx, g)
	metrics.DedupTotal.WithLabelValues("unique").Inc()
	return snapshot(g), false, nil
}

// Canonical resolves the canonical item ID for a registered item.
func (i *Index) Canonical(itemID string) (string, bool) {
	i.regMu.RLock()
	defer i.regMu.RUnlock()
	canonicalID, ok := i.items[itemID]
	return canonicalID, ok
}

// nearestLocked scans stored embeddings for the highest-similarity
// candidate comparable with fp. Caller must hold regMu (read or write).
func (i *Index) nearestLocked(fp *domain.Fingerprint) (string, float64) {
	if fp.EmbeddingMissing || len(fp.Embedding) == 0 {
		return "", 0
	}

	var bestID string
	var bestScore float64
	for _, sh := range i.shards {
		for idx := range sh.entries {
			e := &sh.entries[idx]
			other := domain.Fingerprint{Embedding: e.embedding, EmbeddingModel: e.model}
			if !fp.Comparable(&other) {
				continue
			}
			if score := domain.CosineSimilarity(fp.Embedding, e.embedding); score > bestScore {
				bestID, bestScore = e.itemID, score
			}
		}
	}
	return bestID, bestScore
}

// joinLocked appends an item to an existing group and indexes its
// fingerprint so later items can match it (transitive closure).
func (i *Index) joinLocked(
	ctx context.Context, itemID, canonicalID string,
	fp *domain.Fingerprint, method domain.MatchMethod, score float64,
) *domain.DuplicateGroup {
	g := i.groups[canonicalID]
	g.AddMember(itemID, method, score)
	i.insertLocked(itemID, canonicalID, fp)
	i.persist(ctx, g)
	return g
}

// insertLocked records an item's hash and embedding in its shard.
func (i *Index) insertLocked(itemID, canonicalID string, fp *domain.Fingerprint) {
	i.items[itemID] = canonicalID
	sh := i.shardFor(fp.ContentHash)
	sh.byHash[fp.ContentHash] = canonicalID
	if !fp.EmbeddingMissing && len(fp.Embedding) > 0 {
		sh.entries = append(sh.entries, entry{
			itemID:    itemID,
			embedding: fp.Embedding,
			model:     fp.EmbeddingModel,
		})
	}
}

// claimHash atomically claims a content hash in the shared store.
// Returns the owning item ID ("" when this call won the claim).
func (i *Index) claimHash(ctx context.Context, contentHash, itemID string) (string, error) {
	key := i.cfg.KeyPrefix + "dup:hash:" + contentHash
	claimed, err := i.store.SetNX(ctx, key, []byte(itemID))
	if err != nil {
		return "", fmt.Errorf("claim content hash: %w", err)
	}
	if claimed {
		return "", nil
	}
	owner, err := i.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve hash owner: %w", err)
	}
	return string(owner), nil
}

func snapshot(g *domain.DuplicateGroup) *domain.DuplicateGroup {
	if g == nil {
		return nil
	}
	return domain.ReconstructDuplicateGroup(g.CanonicalID(), g.MemberIDs(), g.Method(), g.Scores())
}
