package domain

import (
	"time"
)

// AnalyzerStatus is the shared outcome vocabulary every adapter translates
// provider-specific failures into.
type AnalyzerStatus string

// Analyzer statuses.
const (
	StatusOK       AnalyzerStatus = "ok"
	StatusTimedOut AnalyzerStatus = "timed_out"
	StatusFailed   AnalyzerStatus = "failed"
	StatusCached   AnalyzerStatus = "cached"
)

// Usable reports whether the result carries a valid analysis
// (fresh or served from cache).
func (s AnalyzerStatus) Usable() bool {
	return s == StatusOK || s == StatusCached
}

// AnalyzerResult is the per-capability output. One per (item, analyzer) pair.
type AnalyzerResult struct {
	Analyzer   string
	Version    string
	Labels     map[string]float64
	Confidence float64
	Evidence   []string
	ComputedAt time.Time
	Status     AnalyzerStatus
}

// AsCached returns a copy marked as served from cache.
func (r AnalyzerResult) AsCached() AnalyzerResult {
	r.Status = StatusCached
	return r
}

// AnalysisRecord is the merged output for one canonical item.
// Immutable after creation; re-analysis produces a new record.
type AnalysisRecord struct {
	RecordID          string
	ItemID            string
	Results           map[string]AnalyzerResult
	OverallConfidence float64
	Completeness      float64
	MergedAt          time.Time
}

// MergeResults builds an AnalysisRecord from settled analyzer results.
//
// Completeness is the fraction of results that are usable. OverallConfidence
// is the importance-weighted average of usable analyzers' confidences:
// analyzers that failed or timed out contribute zero WEIGHT, not zero score,
// so partial completeness does not depress confidence below what the
// available analyzers support. Weights default to 1 when absent from the
// importance table.
//
// Returns ErrAnalysisUnavailable when no result is usable.
func MergeResults(
	recordID, itemID string,
	results map[string]AnalyzerResult,
	weights map[string]float64,
	mergedAt time.Time,
) (AnalysisRecord, error) {
	if len(results) == 0 {
		return AnalysisRecord{}, ErrAnalysisUnavailable
	}

	var usable int
	var weightedSum, weightSum float64
	for name, r := range results {
		if !r.Status.Usable() {
			continue
		}
		usable++
		w := 1.0
		if v, ok := weights[name]; ok {
			w = v
		}
		weightedSum += r.Confidence * w
		weightSum += w
	}

	if usable == 0 {
		return AnalysisRecord{}, ErrAnalysisUnavailable
	}

	overall := 0.0
	if weightSum > 0 {
		overall = weightedSum / weightSum
	}

	return AnalysisRecord{
		RecordID:          recordID,
		ItemID:            itemID,
		Results:           results,
		OverallConfidence: overall,
		Completeness:      float64(usable) / float64(len(results)),
		MergedAt:          mergedAt,
	}, nil
}
