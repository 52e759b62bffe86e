package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"testing"

	"arxiv_rag_go_backend/internal/database"
	"arxiv_rag_go_backend/internal/errors"
	"arxiv_rag_go_backend/internal/llm"
	"arxiv_rag_go_backend/internal/models"
	"arxiv_rag_go_backend/internal/utils/broker"
	"arxiv_rag_go_backend/internal/vectordb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ragFixture struct {
	svc       *RAGService
	arxiv     *MockPaperSearcher
	fullText  *MockFullTextFetcher
	provider  *MockProvider
	store     *DefaultPaperStore
	history   *DefaultHistoryStore
	retriever *vectordb.TFIDFIndex
	publisher *recordingPublisher
}

func newRAGFixture(t *testing.T) *ragFixture {
	t.Helper()
	db, err := database.InitDB("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	f := &ragFixture{
		arxiv:     new(MockPaperSearcher),
		fullText:  new(MockFullTextFetcher),
		provider:  new(MockProvider),
		store:     NewPaperStore(db),
		history:   NewHistoryStore(db),
		retriever: vectordb.NewTFIDFIndex(1000),
		publisher: &recordingPublisher{},
	}
	f.svc = NewRAGService(f.arxiv, f.fullText, f.store, f.history, f.retriever, f.provider, f.publisher, 500)
	return f
}

func samplePapers(n int) []models.Paper {
	papers := make([]models.Paper, n)
	for i := range papers {
		papers[i] = models.Paper{
			PaperID:   fmt.Sprintf("2401.%05dv1", i),
			Title:     fmt.Sprintf("Paper %d", i),
			Authors:   []string{"Author A", "Author B"},
			Summary:   fmt.Sprintf("Study number %d of graph neural networks.", i),
			Published: "2024-01-01",
			Updated:   "2024-01-01",
			ArxivURL:  fmt.Sprintf("http://arxiv.org/abs/2401.%05dv1", i),
		}
	}
	return papers
}

func TestRAGService_SearchPaginates(t *testing.T) {
	f := newRAGFixture(t)
	f.arxiv.On("SearchPapers", mock.Anything, "graph networks", 20, "relevance").Return(samplePapers(23), nil)

	resp, err := f.svc.Search(context.Background(), models.SearchRequest{Query: "  graph networks ", MaxResults: 20, SortBy: "relevance", Page: 3, PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, 23, resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 3, resp.Page)
	require.Len(t, resp.Papers, 3)
	assert.Equal(t, "Paper 20", resp.Papers[0].Title)

	assert.Equal(t, 23, f.retriever.Len())
	require.Len(t, f.publisher.topics, 1)
	assert.Equal(t, broker.TopicIndexUpdate, f.publisher.topics[0])
	update := f.publisher.msgs[0].(IndexUpdate)
	assert.Equal(t, "graph networks", update.Query)
	assert.Equal(t, 23, update.ChunksAdded)

	stored, err := f.store.GetPaper(context.Background(), "2401.00004v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Author A", "Author B"}, stored.Authors)
}

func TestRAGService_SearchPagePastEnd(t *testing.T) {
	f := newRAGFixture(t)
	f.arxiv.On("SearchPapers", mock.Anything, "q", 20, "").Return(samplePapers(4), nil)

	resp, err := f.svc.Search(context.Background(), models.SearchRequest{Query: "q", Page: 5, PageSize: 5})
	require.NoError(t, err)
	assert.Empty(t, resp.Papers)
	assert.NotNil(t, resp.Papers)
	assert.Equal(t, 1, resp.TotalPages)
	assert.Equal(t, 4, resp.Total)
}

func TestRAGService_SearchHugePage(t *testing.T) {
	f := newRAGFixture(t)
	f.arxiv.On("SearchPapers", mock.Anything, "gnn", 20, "").Return(samplePapers(5), nil)

	var resp *models.SearchResponse
	var err error
	require.NotPanics(t, func() {
		resp, err = f.svc.Search(context.Background(), models.SearchRequest{Query: "gnn", Page: 1<<62 + 1, PageSize: 2})
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Papers)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 5, resp.Total)
}

func TestRAGService_SearchValidation(t *testing.T) {
	f := newRAGFixture(t)
	for _, req := range []models.SearchRequest{
		{Query: "   ", Page: 1, PageSize: 10},
		{Query: "q", Page: 0, PageSize: 10},
		{Query: "q", Page: 1, PageSize: 0},
	} {
		_, err := f.svc.Search(context.Background(), req)
		assert.True(t, errors.IsStatus(err, http.StatusBadRequest), "request %+v", req)
	}
	f.arxiv.AssertNotCalled(t, "SearchPapers", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRAGService_SearchClampsMaxResults(t *testing.T) {
	f := newRAGFixture(t)
	f.arxiv.On("SearchPapers", mock.Anything, "q", 200, "date").Return([]models.Paper{}, nil)

	resp, err := f.svc.Search(context.Background(), models.SearchRequest{Query: "q", MaxResults: 5000, SortBy: "date", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.TotalPages)
	f.arxiv.AssertExpectations(t)
}

func TestRAGService_SearchUpstreamError(t *testing.T) {
	f := newRAGFixture(t)
	f.arxiv.On("SearchPapers", mock.Anything, "q", 20, "").Return(nil, errors.New502Error("arXiv API returned HTTP 503", nil))

	_, err := f.svc.Search(context.Background(), models.SearchRequest{Query: "q", Page: 1, PageSize: 10})
	assert.True(t, errors.IsStatus(err, http.StatusBadGateway))
}

func seedIndex(t *testing.T, f *ragFixture) {
	t.Helper()
	long := strings.Repeat("transformer attention ", 20)
	require.NoError(t, f.retriever.Add(context.Background(), []models.Chunk{
		{PaperID: "p1", ChunkIndex: 0, Title: "Attention Paper", Authors: []string{"Vaswani"}, ArxivURL: "http://arxiv.org/abs/p1", Content: long},
		{PaperID: "p2", ChunkIndex: 0, Title: "Graph Paper", Authors: []string{"Kipf"}, ArxivURL: "http://arxiv.org/abs/p2", Content: "graph convolution networks"},
	}))
}

func TestRAGService_Ask(t *testing.T) {
	f := newRAGFixture(t)
	seedIndex(t, f)

	var sent []llm.Message
	f.provider.On("Chat", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]llm.Message) }).
		Return("Attention weighs tokens.", nil)

	resp, err := f.svc.Ask(context.Background(), models.AskRequest{Question: "How does attention work in a transformer?", TopK: 5})
	require.NoError(t, err)

	assert.Equal(t, "Attention weighs tokens.", resp.Answer)
	require.Len(t, resp.Citations, 1)
	c := resp.Citations[0]
	assert.Equal(t, "p1", c.PaperID)
	assert.Equal(t, 0, c.ChunkIndex)
	assert.Len(t, []rune(c.Content), 203)
	assert.True(t, strings.HasSuffix(c.Content, "..."))

	require.Len(t, sent, 2)
	assert.Equal(t, llm.RoleSystem, sent[0].Role)
	assert.Contains(t, sent[1].Content, "[Paper 1] Attention Paper")
	assert.Contains(t, sent[1].Content, "Authors: Vaswani")
	assert.Contains(t, sent[1].Content, "User question: How does attention work in a transformer?")

	records, err := f.svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "mock", records[0].Provider)
	assert.Len(t, records[0].Citations, 1)
}

func TestRAGService_AskNothingRetrieved(t *testing.T) {
	f := newRAGFixture(t)
	seedIndex(t, f)

	_, err := f.svc.Ask(context.Background(), models.AskRequest{Question: "protein folding"})
	assert.True(t, errors.IsStatus(err, http.StatusNotFound))
	f.provider.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestRAGService_AskColdIndexSearchesFirst(t *testing.T) {
	f := newRAGFixture(t)
	f.arxiv.On("SearchPapers", mock.Anything, "gnn", 5, SortRelevance).Return(samplePapers(3), nil).Once()
	f.provider.On("Chat", mock.Anything, mock.Anything).Return("GNNs pass messages.", nil)

	resp, err := f.svc.Ask(context.Background(), models.AskRequest{Query: "gnn", Question: "graph neural networks"})
	require.NoError(t, err)
	assert.Len(t, resp.Citations, 3)
	f.arxiv.AssertExpectations(t)
}

func TestRAGService_AskValidationAndModelFailure(t *testing.T) {
	f := newRAGFixture(t)
	seedIndex(t, f)

	_, err := f.svc.Ask(context.Background(), models.AskRequest{Question: " "})
	assert.True(t, errors.IsStatus(err, http.StatusBadRequest))

	f.provider.On("Chat", mock.Anything, mock.Anything).Return("", stderrors.New("connection refused"))
	_, err = f.svc.Ask(context.Background(), models.AskRequest{Question: "graph convolution"})
	assert.True(t, errors.IsStatus(err, http.StatusBadGateway))
	assert.ErrorContains(t, err, "connection refused")
}

func TestRAGService_StreamAsk(t *testing.T) {
	f := newRAGFixture(t)
	seedIndex(t, f)
	f.provider.On("StreamChat", mock.Anything, mock.Anything, mock.Anything).Return([]string{"Graph ", "conv."}, "Graph conv.", nil)

	var order []string
	resp, err := f.svc.StreamAsk(context.Background(), models.AskRequest{Question: "graph convolution"},
		func(c []models.Citation) error {
			order = append(order, fmt.Sprintf("citations:%d", len(c)))
			return nil
		},
		func(tok string) error {
			order = append(order, tok)
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, []string{"citations:1", "Graph ", "conv."}, order)
	assert.Equal(t, "Graph conv.", resp.Answer)
}

func TestRAGService_GetPaperFetchesOnMiss(t *testing.T) {
	f := newRAGFixture(t)
	paper := samplePapers(1)[0]
	f.arxiv.On("GetPaper", mock.Anything, paper.PaperID).Return(&paper, nil).Once()

	got, err := f.svc.GetPaper(context.Background(), paper.PaperID)
	require.NoError(t, err)
	assert.Equal(t, paper.Title, got.Title)

	got, err = f.svc.GetPaper(context.Background(), paper.PaperID)
	require.NoError(t, err)
	assert.Equal(t, paper.Title, got.Title)
	f.arxiv.AssertExpectations(t)
}

func TestRAGService_IngestFullText(t *testing.T) {
	f := newRAGFixture(t)
	paper := samplePapers(1)[0]
	require.NoError(t, f.store.SavePapers(context.Background(), []models.Paper{paper}))
	f.fullText.On("FetchFullText", mock.Anything, paper.PaperID).Return(strings.Repeat("message passing ", 70), nil)

	added, err := f.svc.IngestFullText(context.Background(), paper.PaperID)
	require.NoError(t, err)
	assert.Equal(t, 4, added)
	assert.Equal(t, vectordb.Stats{Kind: vectordb.KindTFIDF, Papers: 1, Chunks: 4}, f.svc.IndexStats())

	chunks, err := f.store.AllChunks(context.Background())
	require.NoError(t, err)
	assert.Len(t, chunks, 4)

	// Re-ingesting replaces chunks instead of duplicating them.
	_, err = f.svc.IngestFullText(context.Background(), paper.PaperID)
	require.NoError(t, err)
	assert.Equal(t, 4, f.retriever.Len())
	chunks, err = f.store.AllChunks(context.Background())
	require.NoError(t, err)
	assert.Len(t, chunks, 4)
}

func TestRAGService_RestoreIndex(t *testing.T) {
	f := newRAGFixture(t)
	require.NoError(t, f.store.SaveChunks(context.Background(), []models.Chunk{
		{PaperID: "a", ChunkIndex: 0, Content: "restored chunk"},
		{PaperID: "a", ChunkIndex: 1, Content: "another chunk"},
	}))

	n, err := f.svc.RestoreIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, f.retriever.Len())
}

func TestPaginate(t *testing.T) {
	resp := paginate(samplePapers(10), 2, 5)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Len(t, resp.Papers, 5)

	resp = paginate(samplePapers(11), 3, 5)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Len(t, resp.Papers, 1)

	resp = paginate(samplePapers(3), 1, math.MaxInt)
	assert.Equal(t, 1, resp.TotalPages)
	assert.Len(t, resp.Papers, 3)

	resp = paginate(samplePapers(3), math.MaxInt, math.MaxInt)
	assert.Empty(t, resp.Papers)
}
