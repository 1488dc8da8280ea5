package vectorDB

import (
	"math"
	"sort"

	"github.com/akolanti/DocTalk/internal/domain/commonModels"
)

// TopK ranks every chunk of the index by cosine similarity to query and
// returns the best k, ties going to the lower ordinal. k outside 1..len
// returns all chunks ranked.
func TopK(handle *IndexHandle, query []float32, k int) []commonModels.ScoredChunk {
	if handle == nil || len(handle.Chunks) == 0 {
		return nil
	}

	scored := make([]commonModels.ScoredChunk, len(handle.Chunks))
	for i, chunk := range handle.Chunks {
		scored[i] = commonModels.ScoredChunk{
			DocChunk: chunk,
			Score:    CosineSimilarity(query, chunk.Embedding),
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Ordinal < scored[j].Ordinal
	})

	if k <= 0 || k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

// CosineSimilarity is 0 for mismatched dimensions or zero vectors.
func CosineSimilarity(a, b []float32) float32 {
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
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
