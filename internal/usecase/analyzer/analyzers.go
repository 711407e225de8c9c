package analyzer

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

// NewSentiment creates the sentiment adapter. Labels carry the per-class
// score distribution; the dominant class is recorded in evidence.
func NewSentiment(chat ChatCompleter, model string) domain.Analyzer {
	return &chatAnalyzer{
		name:     domain.AnalyzerSentiment,
		revision: "v2",
		model:    model,
		chat:     chat,
		system: `You are a news sentiment analyzer for Spanish and English articles.
Respond with a JSON object: {"sentiment": "positive"|"negative"|"neutral"|"mixed",
"confidence": 0..1, "scores": {"positive": 0..1, "negative": 0..1, "neutral": 0..1, "mixed": 0..1},
"evidence": ["short quote", ...]}`,
		parse: func(raw string) (parsed, error) {
			var resp struct {
				Sentiment  string             `json:"sentiment"`
				Confidence float64            `json:"confidence"`
				Scores     map[string]float64 `json:"scores"`
				Evidence   []string           `json:"evidence"`
			}
			if err := json.Unmarshal([]byte(raw), &resp); err != nil {
				return parsed{}, err
			}
			if resp.Sentiment == "" {
				return parsed{}, fmt.Errorf("missing sentiment field")
			}
			evidence := append([]string{"sentiment: " + resp.Sentiment}, resp.Evidence...)
			return parsed{labels: resp.Scores, confidence: resp.Confidence, evidence: evidence}, nil
		},
	}
}

// NewBias creates the bias-detection adapter. Label key is the detected
// bias type; indicators become evidence.
func NewBias(chat ChatCompleter, model string) domain.Analyzer {
	return &chatAnalyzer{
		name:     domain.AnalyzerBias,
		revision: "v2",
		model:    model,
		chat:     chat,
		system: `You detect bias in news articles.
Respond with a JSON object: {"bias_type": "political_left"|"political_right"|"sensationalism"|
"confirmation_bias"|"selection_bias"|"framing_bias"|"none", "bias_score": 0..1,
"confidence": 0..1, "indicators": ["specific indicator", ...]}`,
		parse: func(raw string) (parsed, error) {
			var resp struct {
				BiasType   string   `json:"bias_type"`
				BiasScore  float64  `json:"bias_score"`
				Confidence float64  `json:"confidence"`
				Indicators []string `json:"indicators"`
			}
			if err := json.Unmarshal([]byte(raw), &resp); err != nil {
				return parsed{}, err
			}
			if resp.BiasType == "" {
				return parsed{}, fmt.Errorf("missing bias_type field")
			}
			return parsed{
				labels:     map[string]float64{resp.BiasType: resp.BiasScore},
				confidence: resp.Confidence,
				evidence:   resp.Indicators,
			}, nil
		},
	}
}

// NewEntities creates the named-entity adapter. Labels count entities per
// bucket; evidence lists each entity with its bucket.
func NewEntities(chat ChatCompleter, model string) domain.Analyzer {
	return &chatAnalyzer{
		name:     domain.AnalyzerEntities,
		revision: "v1",
		model:    model,
		chat:     chat,
		system: `You extract named entities from news articles.
Respond with a JSON object: {"people": [...], "organizations": [...], "locations": [...],
"dates": [...], "confidence": 0..1}`,
		parse: func(raw string) (parsed, error) {
			var resp struct {
				People        []string `json:"people"`
				Organizations []string `json:"organizations"`
				Locations     []string `json:"locations"`
				Dates         []string `json:"dates"`
				Confidence    float64  `json:"confidence"`
			}
			if err := json.Unmarshal([]byte(raw), &resp); err != nil {
				return parsed{}, err
			}
			var evidence []string
			for _, p := range resp.People {
				evidence = append(evidence, "person: "+p)
			}
			for _, o := range resp.Organizations {
				evidence = append(evidence, "org: "+o)
			}
			for _, l := range resp.Locations {
				evidence = append(evidence, "location: "+l)
			}
			for _, d := range resp.Dates {
				evidence = append(evidence, "date: "+d)
			}
			return parsed{
				labels: map[string]float64{
					"people":        float64(len(resp.People)),
					"organizations": float64(len(resp.Organizations)),
					"locations":     float64(len(resp.Locations)),
					"dates":         float64(len(resp.Dates)),
				},
				confidence: resp.Confidence,
				evidence:   evidence,
			}, nil
		},
	}
}

// NewTopics creates the topic-classification adapter.
func NewTopics(chat ChatCompleter, model string) domain.Analyzer {
	return &chatAnalyzer{
		name:     domain.AnalyzerTopics,
		revision: "v1",
		model:    model,
		chat:     chat,
		system: `You classify news articles into topics.
Respond with a JSON object: {"topics": [{"label": "...", "score": 0..1}, ...], "confidence": 0..1}`,
		parse: func(raw string) (parsed, error) {
			var resp struct {
				Topics []struct {
					Label string  `json:"label"`
					Score float64 `json:"score"`
				} `json:"topics"`
				Confidence float64 `json:"confidence"`
			}
			if err := json.Unmarshal([]byte(raw), &resp); err != nil {
				return parsed{}, err
			}
			if len(resp.Topics) == 0 {
				return parsed{}, fmt.Errorf("no topics returned")
			}
			labels := make(map[string]float64, len(resp.Topics))
			evidence := make([]string, 0, len(resp.Topics))
			for _, t := range resp.Topics {
				labels[t.Label] = t.Score
				evidence = append(evidence, "topic: "+t.Label)
			}
			return parsed{labels: labels, confidence: resp.Confidence, evidence: evidence}, nil
		},
	}
}

// NewFactCheck creates the fact-checking adapter. The label key is the
// verdict; checked claims become evidence.
func NewFactCheck(chat ChatCompleter, model string) domain.Analyzer {
	return &chatAnalyzer{
		name:     domain.AnalyzerFactCheck,
		revision: "v1",
		model:    model,
		chat:     chat,
		system: `You fact-check claims in news articles.
Respond with a JSON object: {"verdict": "accurate"|"mostly_accurate"|"mixed"|"mostly_inaccurate"|
"inaccurate"|"unverifiable", "verdict_score": 0..1, "confidence": 0..1,
"claims": ["claim and assessment", ...]}`,
		parse: func(raw string) (parsed, error) {
			var resp struct {
				Verdict      string   `json:"verdict"`
				VerdictScore float64  `json:"verdict_score"`
				Confidence   float64  `json:"confidence"`
				Claims       []string `json:"claims"`
			}
			if err := json.Unmarshal([]byte(raw), &resp); err != nil {
				return parsed{}, err
			}
			if resp.Verdict == "" {
				return parsed{}, fmt.Errorf("missing verdict field")
			}
			return parsed{
				labels:     map[string]float64{resp.Verdict: resp.VerdictScore},
				confidence: resp.Confidence,
				evidence:   resp.Claims,
			}, nil
		},
	}
}
