package record

import (
	"encoding/json"
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

type resultDTO struct {
	Analyzer   string             `json:"analyzer"`
	Version    string             `json:"version"`
	Labels     map[string]float64 `json:"labels,omitempty"`
	Confidence float64            `json:"confidence"`
	Evidence   []string           `json:"evidence,omitempty"`
	ComputedAt time.Time          `json:"computed_at"`
	Status     string             `json:"status"`
}

type recordDTO struct {
	RecordID          string               `json:"record_id"`
	ItemID            string               `json:"item_id"`
	Results           map[string]resultDTO `json:"results"`
	OverallConfidence float64              `json:"overall_confidence"`
	Completeness      float64              `json:"completeness"`
	MergedAt          time.Time            `json:"merged_at"`
}

func marshalRecord(rec *domain.AnalysisRecord) ([]byte, error) {
	dto := recordDTO{
		RecordID:          rec.RecordID,
		ItemID:            rec.ItemID,
		Results:           make(map[string]resultDTO, len(rec.Results)),
		OverallConfidence: rec.OverallConfidence,
		Completeness:      rec.Completeness,
		MergedAt:          rec.MergedAt,
	}
	for name, r := range rec.Results {
		dto.Results[name] = resultDTO{
			Analyzer:   r.Analyzer,
			Version:    r.Version,
			Labels:     r.Labels,
			Confidence: r.Confidence,
			Evidence:   r.Evidence,
			ComputedAt: r.ComputedAt,
			Status:     string(r.Status),
		}
	}
	return json.Marshal(dto)
}

func unmarshalRecord(data []byte) (domain.AnalysisRecord, error) {
	var dto recordDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domain.AnalysisRecord{}, err
	}
	rec := domain.AnalysisRecord{
		RecordID:          dto.RecordID,
		ItemID:            dto.ItemID,
		Results:           make(map[string]domain.AnalyzerResult, len(dto.Results)),
		OverallConfidence: dto.OverallConfidence,
		Completeness:      dto.Completeness,
		MergedAt:          dto.MergedAt,
	}
	for name, r := range dto.Results {
		rec.Results[name] = domain.AnalyzerResult{
			Analyzer:   r.Analyzer,
			Version:    r.Version,
			Labels:     r.Labels,
			Confidence: r.Confidence,
			Evidence:   r.Evidence,
			ComputedAt: r.ComputedAt,
			Status:     domain.AnalyzerStatus(r.Status),
		}
	}
	return rec, nil
}
