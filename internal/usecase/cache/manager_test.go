package cache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

// --- Mocks ---

type sharedEntry struct {
	result    domain.AnalyzerResult
	expiresAt time.Time
}

type mockSharedTier struct {
	entries map[string]sharedEntry
	gets    int
	puts    int
}

func newMockSharedTier() *mockSharedTier {
	return &mockSharedTier{entries: make(map[string]sharedEntry)}
}

func (m *mockSharedTier) Get(_ context.Context, key string) (domain.AnalyzerResult, time.Time, bool) {
	m.gets++
	e, ok := m.entries[key]
	if !ok || !e.expiresAt.After(time.Now()) {
		return domain.AnalyzerResult{}, time.Time{}, false
	}
	return e.result, e.expiresAt, true
}

func (m *mockSharedTier) Put(_ context.Context, key string, result domain.AnalyzerResult, expiresAt time.Time) {
	m.puts++
	m.entries[key] = sharedEntry{result: result, expiresAt: expiresAt}
}

func testKey() Key {
	return Key{ContentHash: "hash-1", Analyzer: "sentiment", Version: "v2:gpt-4o-mini"}
}

func testResult() domain.AnalyzerResult {
	return domain.AnalyzerResult{
		Analyzer:   "sentiment",
		Version:    "v2:gpt-4o-mini",
		Labels:     map[string]float64{"positive": 0.9},
		Confidence: 0.9,
		Status:     domain.StatusOK,
	}
}

// --- Tests ---

func TestGetAfterPut_LocalHit(t *testing.T) {
	shared := newMockSharedTier()
	m, err := New(16, shared, map[string]time.Duration{"sentiment": time.Hour}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	m.Put(ctx, testKey(), testResult())

	got, ok := m.Get(ctx, testKey())
	if !ok {
		t.Fatal("expected a hit within TTL")
	}
	if got.Labels["positive"] != 0.9 {
		t.Errorf("unexpected cached result: %+v", got)
	}
	if shared.gets != 0 {
		t.Error("local hit must not consult the shared tier")
	}
	if shared.puts != 1 {
		t.Error("put must write through to the shared tier")
	}
}

func TestGet_Miss(t *testing.T) {
	m, _ := New(16, newMockSharedTier(), nil, zap.NewNop())

	if _, ok := m.Get(context.Background(), testKey()); ok {
		t.Error("expected miss on empty cache")
	}
}

func TestGet_ExpiredLocalEntryIsMiss(t *testing.T) {
	shared := newMockSharedTier()
	m, _ := New(16, shared, map[string]time.Duration{"sentiment": -time.Second}, zap.NewNop())

	ctx := context.Background()
	m.Put(ctx, testKey(), testResult())

	if _, ok := m.Get(ctx, testKey()); ok {
		t.Error("expired entry must be a miss")
	}
}

func TestGet_SharedHitPromotesWithOriginalExpiry(t *testing.T) {
	shared := newMockSharedTier()
	expiresAt := time.Now().Add(30 * time.Minute)
	shared.entries[testKey().String()] = sharedEntry{result: testResult(), expiresAt: expiresAt}

	m, _ := New(16, shared, nil, zap.NewNop())
	ctx := context.Background()

	if _, ok := m.Get(ctx, testKey()); !ok {
		t.Fatal("expected shared-tier hit")
	}
	// Second read must be served locally.
	if _, ok := m.Get(ctx, testKey()); !ok {
		t.Fatal("expected promoted local hit")
	}
	if shared.gets != 1 {
		t.Errorf("expected one shared read, got %d", shared.gets)
	}
}

func TestTTLFor(t *testing.T) {
	m, _ := New(16, newMockSharedTier(), map[string]time.Duration{"bias": 2 * time.Hour}, zap.NewNop())

	if got := m.TTLFor("bias"); got != 2*time.Hour {
		t.Errorf("expected configured TTL, got %v", got)
	}
	if got := m.TTLFor("unknown"); got != time.Hour {
		t.Errorf("expected default TTL, got %v", got)
	}
}

func TestKeyString_VersionSupersedes(t *testing.T) {
	a := Key{ContentHash: "h", Analyzer: "sentiment", Version: "v1"}
	b := Key{ContentHash: "h", Analyzer: "sentiment", Version: "v2"}
	if a.String() == b.String() {
		t.Error("a new analyzer version must produce a distinct key")
	}
}
