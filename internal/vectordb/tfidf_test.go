package vectordb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"arxiv_rag_go_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(paperID string, idx int, content string) models.Chunk {
	return models.Chunk{PaperID: paperID, ChunkIndex: idx, Title: "Paper " + paperID, Content: content}
}

func TestChunkText(t *testing.T) {
	assert.Empty(t, ChunkText("", 500))
	assert.Equal(t, []string{"abc", "def", "g"}, ChunkText("abcdefg", 3))
	assert.Equal(t, []string{"äöü", "ß"}, ChunkText("äöüß", 3))
	assert.Len(t, ChunkText(strings.Repeat("x", 1001), 0), 3)
}

func TestChunksForPaper(t *testing.T) {
	p := models.Paper{PaperID: "2401.1v1", Title: "T", Authors: []string{"A"}, Summary: strings.Repeat("s", 1200)}

	chunks := ChunksForPaper(p, 500)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, models.ChunkSourceSummary, c.Source)
		assert.Equal(t, "2401.1v1", c.PaperID)
	}

	full := FullTextChunks(p, strings.Repeat("f", 600), 500)
	require.Len(t, full, 2)
	assert.Equal(t, 3, full[0].ChunkIndex)
	assert.Equal(t, models.ChunkSourceFullText, full[1].Source)
}

func TestTokenize_DropsStopWordsAndShortTokens(t *testing.T) {
	assert.Equal(t, []string{"transformers", "use", "attention", "x2"}, tokenize("The Transformers use a attention of x2 ."))
}

func TestTFIDFIndex_RanksRelevantChunkFirst(t *testing.T) {
	idx := NewTFIDFIndex(1000)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []models.Chunk{
		chunk("p1", 0, "Graph neural networks for molecule property prediction."),
		chunk("p2", 0, "Sparse attention mechanisms make transformers efficient on long sequences."),
		chunk("p3", 0, "Reinforcement learning agents in robotics environments."),
	}))

	hits, err := idx.Search(ctx, "efficient attention for transformers", 2)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "p2", hits[0].Chunk.PaperID)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestTFIDFIndex_TopKAndOrdering(t *testing.T) {
	idx := NewTFIDFIndex(0)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []models.Chunk{
		chunk("a", 0, "diffusion models"),
		chunk("b", 0, "diffusion diffusion diffusion models images"),
		chunk("c", 0, "diffusion"),
		chunk("d", 0, "unrelated topic entirely"),
	}))

	hits, err := idx.Search(ctx, "diffusion", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c", hits[0].Chunk.PaperID)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestTFIDFIndex_EmptyAndUnknownTerms(t *testing.T) {
	idx := NewTFIDFIndex(10)
	ctx := context.Background()

	hits, err := idx.Search(ctx, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.Add(ctx, []models.Chunk{chunk("p", 0, "quantum error correction")}))
	hits, err = idx.Search(ctx, "the of and", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTFIDFIndex_ReplacesChunkWithSameIdentity(t *testing.T) {
	idx := NewTFIDFIndex(100)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []models.Chunk{chunk("p", 0, "old content about galaxies")}))
	require.NoError(t, idx.Add(ctx, []models.Chunk{chunk("p", 0, "new content about proteins")}))

	assert.Equal(t, 1, idx.Len())
	hits, err := idx.Search(ctx, "proteins", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Chunk.Content, "proteins")

	hits, err = idx.Search(ctx, "galaxies", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTFIDFIndex_MaxFeaturesKeepsMostFrequent(t *testing.T) {
	idx := NewTFIDFIndex(1)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []models.Chunk{
		chunk("a", 0, "alpha alpha beta"),
		chunk("b", 0, "alpha gamma"),
	}))

	assert.Len(t, idx.vocab, 1)
	_, ok := idx.vocab["alpha"]
	assert.True(t, ok)
}

func TestTFIDFIndex_Stats(t *testing.T) {
	idx := NewTFIDFIndex(100)
	require.NoError(t, idx.Add(context.Background(), []models.Chunk{
		chunk("a", 0, "one"), chunk("a", 1, "two"), chunk("b", 0, "three"),
	}))
	assert.Equal(t, Stats{Kind: KindTFIDF, Papers: 2, Chunks: 3}, idx.Stats())
}

func TestTFIDFIndex_ConcurrentAddAndSearch(t *testing.T) {
	idx := NewTFIDFIndex(100)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = idx.Add(ctx, []models.Chunk{chunk("p", i, "concurrent retrieval test")})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = idx.Search(ctx, "retrieval", 3)
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, idx.Len())
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func TestEmbeddingIndex_Search(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"cats":  {1, 0},
		"dogs":  {0.8, 0.6},
		"stars": {0, 1},
		"pets?": {1, 0.1},
	}}
	idx := NewEmbeddingIndex(emb)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []models.Chunk{chunk("c", 0, "cats"), chunk("d", 0, "dogs"), chunk("s", 0, "stars")}))

	hits, err := idx.Search(ctx, "pets?", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c", hits[0].Chunk.PaperID)
	assert.Equal(t, "d", hits[1].Chunk.PaperID)
	assert.Equal(t, KindEmbedding, idx.Stats().Kind)
}

func TestEmbeddingIndex_EmbedError(t *testing.T) {
	idx := NewEmbeddingIndex(&fakeEmbedder{err: errors.New("model not loaded")})
	err := idx.Add(context.Background(), []models.Chunk{chunk("a", 0, "x")})
	assert.ErrorContains(t, err, "model not loaded")
	assert.Equal(t, 0, idx.Len())
}

func TestNew(t *testing.T) {
	r, err := New("", 0, nil)
	require.NoError(t, err)
	assert.IsType(t, &TFIDFIndex{}, r)

	_, err = New("embedding", 0, nil)
	assert.Error(t, err)

	r, err = New("EMBEDDING", 0, &fakeEmbedder{})
	require.NoError(t, err)
	assert.IsType(t, &EmbeddingIndex{}, r)

	_, err = New("faiss", 0, nil)
	assert.ErrorContains(t, err, "unknown retriever")
}
