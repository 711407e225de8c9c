package domain

import "context"

// Analyzer capability names. The configured set of analyzers is selected
// from these at startup; each maps to one adapter implementation.
const (
	AnalyzerSentiment = "sentiment"
	AnalyzerBias      = "bias"
	AnalyzerEntities  = "entities"
	AnalyzerTopics    = "topics"
	AnalyzerFactCheck = "factcheck"
)

// AnalyzerInput carries the text under analysis plus item context.
type AnalyzerInput struct {
	ItemID   string
	Text     string
	Title    string
	SourceID string
}

// Analyzer is the uniform adapter contract shared by every capability.
// Analyze must complete or fail within the caller-supplied context deadline;
// implementations are stateless between calls.
type Analyzer interface {
	Name() string
	Version() string
	Analyze(ctx context.Context, input AnalyzerInput) (AnalyzerResult, error)
}
