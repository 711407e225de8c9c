package embcache

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return m.result, nil
}

type mockStore struct {
	kv     map[string][]byte
	getErr error
	setErr error
}

func newMockStore() *mockStore {
	return &mockStore{kv: make(map[string][]byte)}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.kv[key] = value
	return nil
}

// --- Tests ---

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.1, 0.2}, Model: "m1", TotalTokens: 7,
	}}
	c := New(inner, newMockStore(), nil, zap.NewNop())
	ctx := context.Background()

	first, err := c.Embed(ctx, "some article text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 7 {
		t.Errorf("miss must report real usage, got %d", first.TotalTokens)
	}

	second, err := c.Embed(ctx, "some article text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected one provider call, got %d", inner.calls)
	}
	if second.Model != "m1" || len(second.Embedding) != 2 {
		t.Errorf("cached result must carry model and vector: %+v", second)
	}
	if second.TotalTokens != 0 {
		t.Errorf("cache hit must report zero tokens, got %d", second.TotalTokens)
	}
}

func TestEmbed_DistinctTextsDistinctKeys(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}, Model: "m1"}}
	store := newMockStore()
	c := New(inner, store, nil, zap.NewNop())
	ctx := context.Background()

	c.Embed(ctx, "text one")
	c.Embed(ctx, "text two")

	if inner.calls != 2 {
		t.Errorf("expected two provider calls, got %d", inner.calls)
	}
	if len(store.kv) != 2 {
		t.Errorf("expected two cache entries, got %d", len(store.kv))
	}
}

func TestEmbed_StoreFailureFallsThrough(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}, Model: "m1"}}
	store := newMockStore()
	store.getErr = errors.New("store down")
	store.setErr = errors.New("store down")
	c := New(inner, store, nil, zap.NewNop())

	if _, err := c.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("store outage must not fail embedding: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected provider call, got %d", inner.calls)
	}
}

func TestEmbed_ProviderErrorPropagates(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingUnavailable}
	c := New(inner, newMockStore(), nil, zap.NewNop())

	if _, err := c.Embed(context.Background(), "text"); !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestEmbed_GarbageCacheEntryIsMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}, Model: "m1"}}
	store := newMockStore()
	c := New(inner, store, nil, zap.NewNop())
	store.kv[c.cacheKey("text")] = []byte("not json")

	if _, err := c.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("garbage entry must fall through to provider, got %d calls", inner.calls)
	}
}
