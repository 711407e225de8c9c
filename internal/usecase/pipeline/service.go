// Package pipeline orchestrates item processing: fingerprint, dedup,
// concurrent cache-checked analyzer fan-out with per-call deadlines, merge
// and sink write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/metrics"
	"github.com/kailas-cloud/newsdex/internal/usecase/cache"
)

// Service is the analysis orchestrator.
type Service struct {
	fingerprinter Fingerprinter
	index         DuplicateIndex
	cache         Cache
	sink          Sink
	specs         []AnalyzerSpec
	weights       map[string]float64
	maxAttempts   int
	retryBase     time.Duration
	logger        *zap.Logger

	inflight sync.WaitGroup
}

// New creates the orchestrator.
func New(
	fingerprinter Fingerprinter,
	index DuplicateIndex,
	c Cache,
	sink Sink,
	specs []AnalyzerSpec,
	logger *zap.Logger,
) *Service {
	weights := make(map[string]float64, len(specs))
	for _, spec := range specs {
		w := spec.Weight
		if w <= 0 {
			w = 1.0
		}
		weights[spec.Analyzer.Name()] = w
	}
	return &Service{
		fingerprinter: fingerprinter,
		index:         index,
		cache:         c,
		sink:          sink,
		specs:         specs,
		weights:       weights,
		maxAttempts:   3,
		retryBase:     500 * time.Millisecond,
		logger:        logger,
	}
}

// WithRetry configures the bounded re-analysis policy applied when zero
// analyzers succeed.
func (s *Service) WithRetry(maxAttempts int, base time.Duration) *Service {
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	if base > 0 {
		s.retryBase = base
	}
	return s
}

// Process runs one item through the state machine to a terminal state.
//
// Per-analyzer failures never fail the item; only total analysis failure
// (after the retry budget) or a sink write failure does.
func (s *Service) Process(ctx context.Context, item *domain.ContentItem) (Outcome, error) {
	start := time.Now()
	log := s.logger.With(zap.String("item_id", item.ID()))

	fp, err := s.fingerprinter.Fingerprint(ctx, item)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientContent) {
			// Logged and discarded, never retried.
			log.Info("Item rejected", zap.Error(err))
			s.observe(StateRejected, start)
			return Outcome{State: StateRejected}, err
		}
		return Outcome{State: StateFailed}, fmt.Errorf("fingerprint item %s: %w", item.ID(), err)
	}

	// Deduplicating: the atomic register path decides canonical vs duplicate.
	group, isDup, err := s.index.Register(ctx, item.ID(), &fp)
	if err != nil {
		return Outcome{State: StateFailed}, fmt.Errorf("register item %s: %w", item.ID(), err)
	}
	if isDup {
		return s.skipDuplicate(ctx, item, group, log, start), nil
	}

	// Dispatched -> Merging, with bounded retries when nothing succeeded.
	rec, err := s.analyzeWithRetry(ctx, item, &fp, log)
	if err != nil {
		s.observe(StateFailed, start)
		return Outcome{State: StateFailed}, err
	}

	// A concurrent copy may have won the canonical slot while analyzers ran
	// (two copies ingested at once). The losing copy's results are discarded
	// in favor of the canonical item's record.
	if canonicalID, ok := s.index.Canonical(item.ID()); ok && canonicalID != item.ID() {
		log.Info("Item lost canonical race mid-flight, discarding results",
			zap.String("canonical_id", canonicalID))
		group, _, _ := s.index.Register(ctx, item.ID(), &fp)
		return s.skipDuplicate(ctx, item, group, log, start), nil
	}

	if err := s.sink.Write(ctx, &rec); err != nil {
		s.observe(StateFailed, start)
		return Outcome{State: StateFailed}, fmt.Errorf("write record for item %s: %w", item.ID(), err)
	}

	state := StateComplete
	if rec.Completeness < 1.0 {
		state = StateCompletePartial
	}
	s.observe(state, start)
	log.Info("item_processed",
		zap.String("state", string(state)),
		zap.String("record_id", rec.RecordID),
		zap.Float64("overall_confidence", rec.OverallConfidence),
		zap.Float64("completeness", rec.Completeness),
		zap.Duration("latency", time.Since(start)),
	)
	return Outcome{State: state, Record: &rec}, nil
}

// skipDuplicate emits the short-circuit outcome with a pointer to the
// canonical item's record when one exists.
func (s *Service) skipDuplicate(
	ctx context.Context, item *domain.ContentItem,
	group *domain.DuplicateGroup, log *zap.Logger, start time.Time,
) Outcome {
	outcome := Outcome{State: StateSkippedDuplicate, Group: group}
	if rec, err := s.sink.GetByItem(ctx, group.CanonicalID()); err == nil {
		outcome.CanonicalRecord = &rec
	} else if !errors.Is(err, domain.ErrItemNotFound) {
		log.Warn("Failed to resolve canonical record", zap.Error(err))
	}
	s.observe(StateSkippedDuplicate, start)
	log.Info("item_processed",
		zap.String("state", string(StateSkippedDuplicate)),
		zap.String("canonical_id", group.CanonicalID()),
		zap.String("method", string(group.Method())),
		zap.Float64("similarity", group.Score(item.ID())),
		zap.Duration("latency", time.Since(start)),
	)
	return outcome
}

// analyzeWithRetry dispatches to all analyzers and merges, retrying with
// exponential backoff while zero analyzers succeed, up to maxAttempts.
func (s *Service) analyzeWithRetry(
	ctx context.Context, item *domain.ContentItem, fp *domain.Fingerprint, log *zap.Logger,
) (domain.AnalysisRecord, error) {
	for attempt := 1; ; attempt++ {
		results := s.dispatch(ctx, item, fp)

		rec, err := domain.MergeResults(
			uuid.NewString(), item.ID(), results, s.weights, time.Now().UTC(),
		)
		if err == nil {
			return rec, nil
		}

		if attempt >= s.maxAttempts {
			return domain.AnalysisRecord{}, domain.NewAnalysisUnavailable(item.ID(), statusesOf(results))
		}

		backoff := s.retryBase * (1 << (attempt - 1))
		metrics.RetriesTotal.Inc()
		log.Warn("Analysis unavailable, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
			zap.Duration("backoff", backoff),
		)
		select {
		case <-ctx.Done():
			return domain.AnalysisRecord{}, fmt.Errorf("retry wait: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}
}

// dispatch fans out one cache-checked call per analyzer concurrently, each
// with its own deadline, and joins once every call has settled. A slow
// analyzer never stalls the others.
func (s *Service) dispatch(
	ctx context.Context, item *domain.ContentItem, fp *domain.Fingerprint,
) map[string]domain.AnalyzerResult {
	input := domain.AnalyzerInput{
		ItemID:   item.ID(),
		Text:     item.RawText(),
		Title:    item.Title(),
		SourceID: item.SourceID(),
	}

	type settled struct {
		name   string
		result domain.AnalyzerResult
	}
	ch := make(chan settled, len(s.specs))

	var wg sync.WaitGroup
	for _, spec := range s.specs {
		wg.Add(1)
		go func(spec AnalyzerSpec) {
			defer wg.Done()
			ch <- settled{spec.Analyzer.Name(), s.callAnalyzer(ctx, spec, input, fp.ContentHash)}
		}(spec)
	}
	wg.Wait()
	close(ch)

	results := make(map[string]domain.AnalyzerResult, len(s.specs))
	for r := range ch {
		results[r.name] = r.result
	}
	return results
}

// callAnalyzer consults the cache, then runs the adapter under its own
// deadline, translating errors into the settled status vocabulary.
func (s *Service) callAnalyzer(
	ctx context.Context, spec AnalyzerSpec, input domain.AnalyzerInput, contentHash string,
) domain.AnalyzerResult {
	name := spec.Analyzer.Name()
	key := cache.Key{ContentHash: contentHash, Analyzer: name, Version: spec.Analyzer.Version()}

	if cached, ok := s.cache.Get(ctx, key); ok {
		metrics.AnalyzerRequestsTotal.WithLabelValues(name, string(domain.StatusCached)).Inc()
		return cached.AsCached()
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	result, err := spec.Analyzer.Analyze(callCtx, input)
	if err != nil {
		status := domain.StatusFailed
		if errors.Is(err, domain.ErrAnalyzerTimeout) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			status = domain.StatusTimedOut
		}
		metrics.AnalyzerRequestsTotal.WithLabelValues(name, string(status)).Inc()
		s.logger.Warn("Analyzer settled without result",
			zap.String("item_id", input.ItemID),
			zap.String("analyzer", name),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return domain.AnalyzerResult{
			Analyzer:   name,
			Version:    spec.Analyzer.Version(),
			ComputedAt: time.Now().UTC(),
			Status:     status,
		}
	}

	metrics.AnalyzerRequestsTotal.WithLabelValues(name, string(domain.StatusOK)).Inc()
	s.cache.Put(ctx, key, result)
	return result
}

func (s *Service) observe(state State, start time.Time) {
	metrics.ItemsTotal.WithLabelValues(string(state)).Inc()
	metrics.ItemDuration.WithLabelValues(string(state)).Observe(time.Since(start).Seconds())
}

func statusesOf(results map[string]domain.AnalyzerResult) map[string]domain.AnalyzerStatus {
	statuses := make(map[string]domain.AnalyzerStatus, len(results))
	for name, r := range results {
		statuses[name] = r.Status
	}
	return statuses
}
