package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

func testInput() domain.AnalyzerInput {
	return domain.AnalyzerInput{
		ItemID:   "item-1",
		Text:     "The central bank raised rates again.",
		Title:    "Rate hike",
		SourceID: "source-1",
	}
}

func TestAnalyze_Sentiment(t *testing.T) {
	chat := &mockChat{response: `{
		"sentiment": "negative",
		"confidence": 0.82,
		"scores": {"positive": 0.05, "negative": 0.82, "neutral": 0.1, "mixed": 0.03},
		"evidence": ["raised rates again"]
	}`}
	a := NewSentiment(chat, "gpt-4o-mini")

	res, err := a.Analyze(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.StatusOK {
		t.Errorf("expected StatusOK, got %q", res.Status)
	}
	if res.Confidence != 0.82 {
		t.Errorf("expected confidence 0.82, got %f", res.Confidence)
	}
	if res.Labels["negative"] != 0.82 {
		t.Errorf("unexpected labels: %v", res.Labels)
	}
	if len(res.Evidence) == 0 || res.Evidence[0] != "sentiment: negative" {
		t.Errorf("expected dominant class in evidence, got %v", res.Evidence)
	}
	if chat.lastModel != "gpt-4o-mini" {
		t.Errorf("unexpected model %q", chat.lastModel)
	}
}

func TestAnalyze_Bias(t *testing.T) {
	chat := &mockChat{response: `{
		"bias_type": "sensationalism",
		"bias_score": 0.7,
		"confidence": 0.65,
		"indicators": ["loaded headline"]
	}`}
	a := NewBias(chat, "gpt-4o-mini")

	res, err := a.Analyze(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Labels["sensationalism"] != 0.7 {
		t.Errorf("unexpected labels: %v", res.Labels)
	}
	if len(res.Evidence) != 1 || res.Evidence[0] != "loaded headline" {
		t.Errorf("unexpected evidence: %v", res.Evidence)
	}
}

func TestAnalyze_Entities(t *testing.T) {
	chat := &mockChat{response: `{
		"people": ["Jerome Powell"],
		"organizations": ["Federal Reserve"],
		"locations": [],
		"dates": ["Wednesday"],
		"confidence": 0.9
	}`}
	a := NewEntities(chat, "gpt-4o-mini")

	res, err := a.Analyze(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Labels["people"] != 1 || res.Labels["organizations"] != 1 || res.Labels["locations"] != 0 {
		t.Errorf("unexpected bucket counts: %v", res.Labels)
	}
	if len(res.Evidence) != 3 {
		t.Errorf("expected 3 evidence entries, got %v", res.Evidence)
	}
}

func TestAnalyze_Topics_EmptyIsParseError(t *testing.T) {
	chat := &mockChat{response: `{"topics": [], "confidence": 0.5}`}
	a := NewTopics(chat, "gpt-4o-mini")

	_, err := a.Analyze(context.Background(), testInput())
	if !errors.Is(err, domain.ErrAnalyzerFailure) {
		t.Errorf("expected ErrAnalyzerFailure, got %v", err)
	}
}

func TestAnalyze_FactCheck(t *testing.T) {
	chat := &mockChat{response: `{
		"verdict": "mostly_accurate",
		"verdict_score": 0.75,
		"confidence": 0.6,
		"claims": ["rates were raised: confirmed"]
	}`}
	a := NewFactCheck(chat, "gpt-4o")

	res, err := a.Analyze(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Labels["mostly_accurate"] != 0.75 {
		t.Errorf("unexpected labels: %v", res.Labels)
	}
}

func TestAnalyze_MalformedResponse(t *testing.T) {
	chat := &mockChat{response: "I cannot answer in JSON"}
	a := NewSentiment(chat, "gpt-4o-mini")

	_, err := a.Analyze(context.Background(), testInput())
	if !errors.Is(err, domain.ErrAnalyzerFailure) {
		t.Errorf("expected ErrAnalyzerFailure, got %v", err)
	}
}

func TestAnalyze_MissingRequiredField(t *testing.T) {
	chat := &mockChat{response: `{"confidence": 0.9}`}
	a := NewSentiment(chat, "gpt-4o-mini")

	_, err := a.Analyze(context.Background(), testInput())
	if !errors.Is(err, domain.ErrAnalyzerFailure) {
		t.Errorf("expected ErrAnalyzerFailure, got %v", err)
	}
}

func TestAnalyze_DeadlineBecomesTimeout(t *testing.T) {
	chat := &mockChat{err: context.DeadlineExceeded}
	a := NewSentiment(chat, "gpt-4o-mini")

	_, err := a.Analyze(context.Background(), testInput())
	if !errors.Is(err, domain.ErrAnalyzerTimeout) {
		t.Errorf("expected ErrAnalyzerTimeout, got %v", err)
	}
}

func TestAnalyze_CancellationPassesThrough(t *testing.T) {
	chat := &mockChat{err: context.Canceled}
	a := NewSentiment(chat, "gpt-4o-mini")

	_, err := a.Analyze(context.Background(), testInput())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrAnalyzerFailure) {
		t.Error("cancellation must not be classified as a failure")
	}
}

func TestAnalyze_ConfidenceClamped(t *testing.T) {
	chat := &mockChat{response: `{"sentiment": "neutral", "confidence": 1.8}`}
	a := NewSentiment(chat, "gpt-4o-mini")

	res, err := a.Analyze(context.Background(), testInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence != 1.0 {
		t.Errorf("expected clamp to 1.0, got %f", res.Confidence)
	}
}

func TestAnalyze_TruncatesLongInput(t *testing.T) {
	chat := &mockChat{response: `{"sentiment": "neutral", "confidence": 0.5}`}
	a := NewSentiment(chat, "gpt-4o-mini")

	input := testInput()
	input.Text = strings.Repeat("x", maxInputChars*2)

	if _, err := a.Analyze(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chat.lastUser) > maxInputChars+200 {
		t.Errorf("prompt not truncated: %d chars", len(chat.lastUser))
	}
}

func TestVersion_IncludesModel(t *testing.T) {
	a := NewSentiment(&mockChat{}, "gpt-4o-mini")
	b := NewSentiment(&mockChat{}, "gpt-4o")

	if a.Version() == b.Version() {
		t.Error("a model change must change the version")
	}
	if a.Name() != domain.AnalyzerSentiment {
		t.Errorf("unexpected name %q", a.Name())
	}
}

func TestBuild(t *testing.T) {
	for _, name := range []string{
		domain.AnalyzerSentiment, domain.AnalyzerBias, domain.AnalyzerEntities,
		domain.AnalyzerTopics, domain.AnalyzerFactCheck,
	} {
		a, err := Build(name, "gpt-4o-mini", &mockChat{})
		if err != nil {
			t.Errorf("Build(%s): %v", name, err)
			continue
		}
		if a.Name() != name {
			t.Errorf("Build(%s) returned %q", name, a.Name())
		}
	}

	if _, err := Build("astrology", "gpt-4o-mini", &mockChat{}); !errors.Is(err, domain.ErrUnknownAnalyzer) {
		t.Errorf("expected ErrUnknownAnalyzer, got %v", err)
	}
}
