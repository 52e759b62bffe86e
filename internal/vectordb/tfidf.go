package vectordb

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"arxiv_rag_go_backend/internal/models"
)

const DefaultMaxFeatures = 1000

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// tokenize lowercases text and keeps runs of two or more word characters
// that are not English stop words.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := englishStopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

type sparseVec map[int]float64

// TFIDFIndex scores chunks by cosine similarity of l2-normalized TF-IDF
// vectors. The vocabulary is capped at maxFeatures terms and refit on every
// Add.
type TFIDFIndex struct {
	mu          sync.RWMutex
	maxFeatures int
	chunks      []models.Chunk
	positions   map[models.ChunkKey]int
	vocab       map[string]int
	idf         []float64
	rows        []sparseVec
}

func NewTFIDFIndex(maxFeatures int) *TFIDFIndex {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &TFIDFIndex{
		maxFeatures: maxFeatures,
		positions:   make(map[models.ChunkKey]int),
		vocab:       make(map[string]int),
	}
}

func (t *TFIDFIndex) Add(_ context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, c := range chunks {
		if pos, ok := t.positions[c.Key()]; ok {
			t.chunks[pos] = c
			continue
		}
		t.positions[c.Key()] = len(t.chunks)
		t.chunks = append(t.chunks, c)
	}
	t.refit()
	return nil
}

func (t *TFIDFIndex) refit() {
	docs := make([][]string, len(t.chunks))
	total := make(map[string]int)
	for i, c := range t.chunks {
		docs[i] = tokenize(c.Content)
		for _, tok := range docs[i] {
			total[tok]++
		}
	}

	terms := make([]string, 0, len(total))
	for term := range total {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if total[terms[i]] != total[terms[j]] {
			return total[terms[i]] > total[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > t.maxFeatures {
		terms = terms[:t.maxFeatures]
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	for i, term := range terms {
		vocab[term] = i
	}

	df := make([]int, len(terms))
	counts := make([]map[int]int, len(docs))
	for i, doc := range docs {
		counts[i] = make(map[int]int)
		for _, tok := range doc {
			if idx, ok := vocab[tok]; ok {
				if counts[i][idx] == 0 {
					df[idx]++
				}
				counts[i][idx]++
			}
		}
	}

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i := range terms {
		idf[i] = math.Log((1+n)/(1+float64(df[i]))) + 1
	}

	rows := make([]sparseVec, len(docs))
	for i := range docs {
		rows[i] = weigh(counts[i], idf)
	}

	t.vocab = vocab
	t.idf = idf
	t.rows = rows
}

func weigh(counts map[int]int, idf []float64) sparseVec {
	vec := make(sparseVec, len(counts))
	var norm float64
	for idx, c := range counts {
		w := float64(c) * idf[idx]
		vec[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for idx := range vec {
		vec[idx] /= norm
	}
	return vec
}

func (t *TFIDFIndex) Search(_ context.Context, query string, topK int) ([]Hit, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.chunks) == 0 {
		return nil, nil
	}

	counts := make(map[int]int)
	for _, tok := range tokenize(query) {
		if idx, ok := t.vocab[tok]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return nil, nil
	}
	q := weigh(counts, t.idf)

	scores := make([]float64, len(t.rows))
	for i, row := range t.rows {
		var dot float64
		for idx, w := range q {
			dot += w * row[idx]
		}
		scores[i] = dot
	}
	return topHits(t.chunks, scores, topK), nil
}

func (t *TFIDFIndex) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.chunks)
}

func (t *TFIDFIndex) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Stats{Kind: KindTFIDF, Papers: countPapers(t.chunks), Chunks: len(t.chunks)}
}
