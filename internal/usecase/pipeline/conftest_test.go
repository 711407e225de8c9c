package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/repository/ingest"
	"github.com/kailas-cloud/newsdex/internal/usecase/cache"
)

// --- Mocks ---

type mockFingerprinter struct {
	fp  domain.Fingerprint
	err error
}

func (m *mockFingerprinter) Fingerprint(_ context.Context, _ *domain.ContentItem) (domain.Fingerprint, error) {
	if m.err != nil {
		return domain.Fingerprint{}, m.err
	}
	return m.fp, nil
}

type mockIndex struct {
	mu        sync.Mutex
	group     *domain.DuplicateGroup
	isDup     bool
	err       error
	canonical map[string]string
	registers int
}

func (m *mockIndex) Register(_ context.Context, itemID string, _ *domain.Fingerprint) (*domain.DuplicateGroup, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registers++
	if m.err != nil {
		return nil, false, m.err
	}
	if m.group != nil {
		return m.group, m.isDup, nil
	}
	return domain.NewDuplicateGroup(itemID), false, nil
}

func (m *mockIndex) Canonical(itemID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.canonical == nil {
		return itemID, true
	}
	c, ok := m.canonical[itemID]
	return c, ok
}

type mockCache struct {
	mu      sync.Mutex
	entries map[string]domain.AnalyzerResult
	puts    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]domain.AnalyzerResult)}
}

func (m *mockCache) Get(_ context.Context, key cache.Key) (domain.AnalyzerResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[key.String()]
	return r, ok
}

func (m *mockCache) Put(_ context.Context, key cache.Key, result domain.AnalyzerResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.entries[key.String()] = result
}

type mockSink struct {
	mu       sync.Mutex
	records  map[string]domain.AnalysisRecord // itemID -> record
	writeErr error
	writes   int
}

func newMockSink() *mockSink {
	return &mockSink{records: make(map[string]domain.AnalysisRecord)}
}

func (m *mockSink) Write(_ context.Context, rec *domain.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.records[rec.ItemID] = *rec
	return nil
}

func (m *mockSink) GetByItem(_ context.Context, itemID string) (domain.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[itemID]
	if !ok {
		return domain.AnalysisRecord{}, domain.ErrItemNotFound
	}
	return rec, nil
}

// fakeAnalyzer settles with a fixed result or error and counts calls.
type fakeAnalyzer struct {
	name       string
	confidence float64
	err        error
	calls      atomic.Int64
}

func (f *fakeAnalyzer) Name() string    { return f.name }
func (f *fakeAnalyzer) Version() string { return "v1:test" }

func (f *fakeAnalyzer) Analyze(_ context.Context, _ domain.AnalyzerInput) (domain.AnalyzerResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return domain.AnalyzerResult{}, f.err
	}
	return domain.AnalyzerResult{
		Analyzer:   f.name,
		Version:    "v1:test",
		Confidence: f.confidence,
		ComputedAt: time.Now().UTC(),
		Status:     domain.StatusOK,
	}, nil
}

type mockIngestor struct {
	mu      sync.Mutex
	batches chan []ingest.Message
	acked   []string
	initErr error
}

func newMockIngestor(buffer int) *mockIngestor {
	return &mockIngestor{batches: make(chan []ingest.Message, buffer)}
}

func (m *mockIngestor) Init(_ context.Context) error { return m.initErr }

func (m *mockIngestor) Fetch(ctx context.Context) ([]ingest.Message, error) {
	select {
	case batch := <-m.batches:
		return batch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *mockIngestor) Ack(_ context.Context, entryIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, entryIDs...)
	return nil
}

func (m *mockIngestor) ackedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.acked))
	copy(out, m.acked)
	return out
}
