// Package analyzer holds the capability adapters: one uniform contract
// over heterogeneous model-backed analyses. Adapters are stateless between
// calls; caching belongs to the cache manager, not here.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/metrics"
)

// maxInputChars bounds the text sent to a model per call.
const maxInputChars = 12000

// parsed is the capability-neutral shape each parse function returns.
type parsed struct {
	labels     map[string]float64
	confidence float64
	evidence   []string
}

// chatAnalyzer is the shared adapter core. Each capability supplies its
// prompt revision, system prompt and response parser.
type chatAnalyzer struct {
	name     string
	revision string
	model    string
	chat     ChatCompleter
	system   string
	parse    func(raw string) (parsed, error)
}

// Name returns the capability name.
func (a *chatAnalyzer) Name() string { return a.name }

// Version identifies both the prompt revision and the backing model, so a
// model change supersedes cached results.
func (a *chatAnalyzer) Version() string { return a.revision + ":" + a.model }

// Analyze runs one model call bounded by the caller's context deadline and
// translates provider failures into the shared status vocabulary via
// sentinel errors (ErrAnalyzerTimeout, ErrAnalyzerFailure).
func (a *chatAnalyzer) Analyze(ctx context.Context, input domain.AnalyzerInput) (domain.AnalyzerResult, error) {
	start := time.Now()

	raw, err := a.chat.Complete(ctx, a.model, a.system, userPrompt(input))

	metrics.AnalyzerDuration.WithLabelValues(a.name).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.AnalyzerResult{}, fmt.Errorf("%s: %w", a.name, domain.ErrAnalyzerTimeout)
		}
		if errors.Is(err, context.Canceled) {
			return domain.AnalyzerResult{}, fmt.Errorf("%s: %w", a.name, err)
		}
		return domain.AnalyzerResult{}, fmt.Errorf("%s: %v: %w", a.name, err, domain.ErrAnalyzerFailure)
	}

	p, err := a.parse(raw)
	if err != nil {
		return domain.AnalyzerResult{}, fmt.Errorf("%s: parse response: %v: %w", a.name, err, domain.ErrAnalyzerFailure)
	}

	return domain.AnalyzerResult{
		Analyzer:   a.name,
		Version:    a.Version(),
		Labels:     p.labels,
		Confidence: clamp01(p.confidence),
		Evidence:   p.evidence,
		ComputedAt: time.Now().UTC(),
		Status:     domain.StatusOK,
	}, nil
}

func userPrompt(input domain.AnalyzerInput) string {
	text := input.Text
	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}
	return fmt.Sprintf("Title: %s\nSource: %s\n\n%s", input.Title, input.SourceID, text)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
