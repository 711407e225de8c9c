package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientContent signals fingerprinting input below the minimum
	// normalized length. Not retried.
	ErrInsufficientContent = errors.New("insufficient content")
	// ErrEmbeddingUnavailable signals an embedding provider failure.
	// Dedup degrades to exact-hash only; not an item error.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrAnalyzerTimeout signals a per-analyzer deadline hit.
	ErrAnalyzerTimeout = errors.New("analyzer timed out")
	// ErrAnalyzerFailure signals an unrecoverable per-analyzer error.
	ErrAnalyzerFailure = errors.New("analyzer failed")
	// ErrAnalysisUnavailable signals that zero analyzers succeeded for an item.
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
	// ErrItemNotFound signals a missing item or record.
	ErrItemNotFound = errors.New("item not found")
	// ErrUnknownAnalyzer signals a configured analyzer with no registered adapter.
	ErrUnknownAnalyzer = errors.New("unknown analyzer")
)

// AnalysisUnavailableError wraps ErrAnalysisUnavailable with the per-analyzer
// statuses observed on the failed attempt.
type AnalysisUnavailableError struct {
	ItemID   string
	Statuses map[string]AnalyzerStatus
}

func (e *AnalysisUnavailableError) Error() string {
	return fmt.Sprintf("%s: item %s, %d analyzers settled without success",
		ErrAnalysisUnavailable.Error(), e.ItemID, len(e.Statuses))
}

func (e *AnalysisUnavailableError) Unwrap() error { return ErrAnalysisUnavailable }

// NewAnalysisUnavailable creates an AnalysisUnavailableError.
func NewAnalysisUnavailable(itemID string, statuses map[string]AnalyzerStatus) error {
	return &AnalysisUnavailableError{ItemID: itemID, Statuses: statuses}
}
