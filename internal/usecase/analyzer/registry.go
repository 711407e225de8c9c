package analyzer

import (
	"fmt"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

// Build creates the adapter for a capability name. The configured analyzer
// set is selected from these at startup.
func Build(name, model string, chat ChatCompleter) (domain.Analyzer, error) {
	switch name {
	case domain.AnalyzerSentiment:
		return NewSentiment(chat, model), nil
	case domain.AnalyzerBias:
		return NewBias(chat, model), nil
	case domain.AnalyzerEntities:
		return NewEntities(chat, model), nil
	case domain.AnalyzerTopics:
		return NewTopics(chat, model), nil
	case domain.AnalyzerFactCheck:
		return NewFactCheck(chat, model), nil
	default:
		return nil, fmt.Errorf("analyzer %s: %w", name, domain.ErrUnknownAnalyzer)
	}
}
