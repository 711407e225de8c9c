package domain

import (
	"math"
	"time"
)

// Fingerprint identifies a content item for deduplication: a deterministic
// hash of the normalized text plus an optional semantic embedding.
// Immutable once produced.
type Fingerprint struct {
	ContentHash      string
	Embedding        []float32
	EmbeddingModel   string
	EmbeddingMissing bool
	ComputedAt       time.Time
}

// Comparable reports whether two fingerprints' embeddings may be compared.
// Embeddings produced by different models never match (version drift makes
// cross-model cosine scores meaningless).
func (f *Fingerprint) Comparable(other *Fingerprint) bool {
	if f.EmbeddingMissing || other.EmbeddingMissing {
		return false
	}
	if f.EmbeddingModel != other.EmbeddingModel {
		return false
	}
	return len(f.Embedding) > 0 && len(f.Embedding) == len(other.Embedding)
}

// CosineSimilarity computes the cosine similarity of two equal-length vectors.
// Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
