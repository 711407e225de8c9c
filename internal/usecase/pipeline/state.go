package pipeline

import "github.com/kailas-cloud/newsdex/internal/domain"

// State is an item's position in the orchestration state machine:
//
//	Received -> Deduplicating -> Dispatched -> Merging -> Complete
//	                         \                        \-> CompletePartial
//	                          \-> SkippedDuplicate
//
// Rejected and Failed are the terminal error states (insufficient content
// and exhausted analysis attempts respectively).
type State string

// Pipeline states.
const (
	StateReceived         State = "received"
	StateDeduplicating    State = "deduplicating"
	StateDispatched       State = "dispatched"
	StateMerging          State = "merging"
	StateComplete         State = "complete"
	StateCompletePartial  State = "complete_partial"
	StateSkippedDuplicate State = "skipped_duplicate"
	StateRejected         State = "rejected"
	StateFailed           State = "failed"
)

// Terminal reports whether the state ends an item's processing.
func (s State) Terminal() bool {
	switch s {
	case StateComplete, StateCompletePartial, StateSkippedDuplicate, StateRejected, StateFailed:
		return true
	}
	return false
}

// Outcome is the terminal result of processing one item.
type Outcome struct {
	State State
	// Record is set for Complete / CompletePartial.
	Record *domain.AnalysisRecord
	// Group and CanonicalRecord are set for SkippedDuplicate; the record
	// pointer is nil when the canonical item has not finished analysis yet.
	Group           *domain.DuplicateGroup
	CanonicalRecord *domain.AnalysisRecord
}
