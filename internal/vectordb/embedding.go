package vectordb

import (
	"context"
	"fmt"
	"math"
	"sync"

	"arxiv_rag_go_backend/internal/models"
)

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingIndex ranks chunks by cosine similarity of model embeddings.
type EmbeddingIndex struct {
	embedder Embedder

	mu        sync.RWMutex
	chunks    []models.Chunk
	vectors   [][]float32
	positions map[models.ChunkKey]int
}

func NewEmbeddingIndex(embedder Embedder) *EmbeddingIndex {
	return &EmbeddingIndex{
		embedder:  embedder,
		positions: make(map[models.ChunkKey]int),
	}
}

func (e *EmbeddingIndex) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, c := range chunks {
		if pos, ok := e.positions[c.Key()]; ok {
			e.chunks[pos] = c
			e.vectors[pos] = vectors[i]
			continue
		}
		e.positions[c.Key()] = len(e.chunks)
		e.chunks = append(e.chunks, c)
		e.vectors = append(e.vectors, vectors[i])
	}
	return nil
}

func (e *EmbeddingIndex) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	if e.Len() == 0 {
		return nil, nil
	}
	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}
	q := vectors[0]

	e.mu.RLock()
	defer e.mu.RUnlock()
	scores := make([]float64, len(e.vectors))
	for i, v := range e.vectors {
		scores[i] = cosine(q, v)
	}
	return topHits(e.chunks, scores, topK), nil
}

func (e *EmbeddingIndex) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.chunks)
}

func (e *EmbeddingIndex) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{Kind: KindEmbedding, Papers: countPapers(e.chunks), Chunks: len(e.chunks)}
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
