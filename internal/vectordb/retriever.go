package vectordb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"arxiv_rag_go_backend/internal/models"
)

// Hit is a retrieved chunk with its similarity to the query.
type Hit struct {
	Chunk models.Chunk
	Score float64
}

type Stats struct {
	Kind   string `json:"retriever"`
	Papers int    `json:"papers"`
	Chunks int    `json:"chunks"`
}

// Retriever is a similarity index over chunks. Adding a chunk whose
// (paper_id, chunk_index) is already present replaces it.
type Retriever interface {
	Add(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, query string, topK int) ([]Hit, error)
	Len() int
	Stats() Stats
}

const (
	KindTFIDF     = "tfidf"
	KindEmbedding = "embedding"
)

// New builds the retriever named by kind.
func New(kind string, maxFeatures int, embedder Embedder) (Retriever, error) {
	switch strings.ToLower(kind) {
	case KindTFIDF, "":
		return NewTFIDFIndex(maxFeatures), nil
	case KindEmbedding:
		if embedder == nil {
			return nil, fmt.Errorf("embedding retriever requires an embedder")
		}
		return NewEmbeddingIndex(embedder), nil
	default:
		return nil, fmt.Errorf("unknown retriever %q", kind)
	}
}

// topHits drops non-positive scores and returns the best k in descending
// order. Equal scores keep insertion order.
func topHits(chunks []models.Chunk, scores []float64, k int) []Hit {
	hits := make([]Hit, 0, len(chunks))
	for i, s := range scores {
		if s <= 0 {
			continue
		}
		hits = append(hits, Hit{Chunk: chunks[i], Score: s})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func countPapers(chunks []models.Chunk) int {
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		seen[c.PaperID] = struct{}{}
	}
	return len(seen)
}
