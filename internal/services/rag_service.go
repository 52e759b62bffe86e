package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"arxiv_rag_go_backend/internal/errors"
	"arxiv_rag_go_backend/internal/llm"
	"arxiv_rag_go_backend/internal/models"
	"arxiv_rag_go_backend/internal/utils/broker"
	"arxiv_rag_go_backend/internal/vectordb"

	"github.com/rs/zerolog"
)

const (
	maxSearchResults  = 200
	maxTopK           = 50
	citationSnippet   = 200
	systemInstruction = "You are a professional academic assistant. Answer the user's question based on the provided paper content."
)

// IndexUpdate is published on broker.TopicIndexUpdate after papers are indexed.
type IndexUpdate struct {
	Query       string    `json:"query,omitempty"`
	PaperID     string    `json:"paper_id,omitempty"`
	ChunksAdded int       `json:"chunks_added"`
	Papers      int       `json:"papers"`
	Chunks      int       `json:"chunks"`
	Timestamp   time.Time `json:"timestamp"`
}

// RAGService implements paper search and retrieval-augmented question
// answering over the papers it has seen.
type RAGService struct {
	arxiv     PaperSearcher
	fullText  FullTextFetcher
	store     PaperStore
	history   HistoryStore
	retriever vectordb.Retriever
	llm       llm.Provider
	publisher EventPublisher
	chunkSize int
}

func NewRAGService(
	arxiv PaperSearcher,
	fullText FullTextFetcher,
	store PaperStore,
	history HistoryStore,
	retriever vectordb.Retriever,
	provider llm.Provider,
	publisher EventPublisher,
	chunkSize int,
) *RAGService {
	if chunkSize <= 0 {
		chunkSize = vectordb.DefaultChunkSize
	}
	return &RAGService{
		arxiv:     arxiv,
		fullText:  fullText,
		store:     store,
		history:   history,
		retriever: retriever,
		llm:       provider,
		publisher: publisher,
		chunkSize: chunkSize,
	}
}

// RestoreIndex loads persisted chunks into the retriever.
func (s *RAGService) RestoreIndex(ctx context.Context) (int, error) {
	chunks, err := s.store.AllChunks(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.retriever.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to restore index: %w", err)
	}
	return len(chunks), nil
}

// Search fetches papers from arXiv, indexes them and returns the requested
// page. A page past the end yields an empty list.
func (s *RAGService) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, errors.New400Error("query must not be empty")
	}
	if req.Page < 1 {
		return nil, errors.New400Error("page must be >= 1")
	}
	if req.PageSize < 1 {
		return nil, errors.New400Error("page_size must be >= 1")
	}
	req.MaxResults = clamp(req.MaxResults, models.DefaultSearchMaxResults, maxSearchResults)

	papers, err := s.arxiv.SearchPapers(ctx, req.Query, req.MaxResults, req.SortBy)
	if err != nil {
		return nil, fmt.Errorf("search papers: %w", err)
	}

	s.indexPapers(ctx, req.Query, papers)

	return paginate(papers, req.Page, req.PageSize), nil
}

func paginate(papers []models.Paper, page, pageSize int) *models.SearchResponse {
	if papers == nil {
		papers = []models.Paper{}
	}
	total := len(papers)
	// page and pageSize come from the request; keep the arithmetic in range.
	start := total
	if page-1 < total/pageSize+1 {
		start = min((page-1)*pageSize, total)
	}
	end := total
	if pageSize < total-start {
		end = start + pageSize
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total-1)/pageSize + 1
	}
	return &models.SearchResponse{
		Papers:     papers[start:end],
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}
}

// indexPapers persists papers and adds their summary chunks to the index.
// Failures are logged; the search result is still returned.
func (s *RAGService) indexPapers(ctx context.Context, query string, papers []models.Paper) {
	logger := zerolog.Ctx(ctx)
	if len(papers) == 0 {
		return
	}
	if err := s.store.SavePapers(ctx, papers); err != nil {
		logger.Warn().Err(err).Msg("failed to persist papers")
	}

	var chunks []models.Chunk
	for _, p := range papers {
		chunks = append(chunks, vectordb.ChunksForPaper(p, s.chunkSize)...)
	}
	s.addChunks(ctx, chunks, IndexUpdate{Query: query})
}

func (s *RAGService) addChunks(ctx context.Context, chunks []models.Chunk, update IndexUpdate) error {
	logger := zerolog.Ctx(ctx)
	if err := s.retriever.Add(ctx, chunks); err != nil {
		logger.Warn().Err(err).Int("chunks", len(chunks)).Msg("failed to index chunks")
		return err
	}
	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		logger.Warn().Err(err).Msg("failed to persist chunks")
	}

	stats := s.retriever.Stats()
	update.ChunksAdded = len(chunks)
	update.Papers = stats.Papers
	update.Chunks = stats.Chunks
	update.Timestamp = time.Now().UTC()
	if s.publisher != nil {
		s.publisher.Publish(broker.TopicIndexUpdate, update)
	}
	logger.Info().Int("chunks_added", len(chunks)).Int("chunks_total", stats.Chunks).Msg("index updated")
	return nil
}

// Ask answers the question from the top_k retrieved chunks.
func (s *RAGService) Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error) {
	hits, err := s.retrieve(ctx, &req)
	if err != nil {
		return nil, err
	}

	answer, err := s.llm.Chat(ctx, buildMessages(req.Question, hits))
	if err != nil {
		return nil, errors.New502Error(fmt.Sprintf("model call failed: %v", err), err)
	}

	resp := &models.AskResponse{Answer: answer, Citations: buildCitations(hits)}
	s.record(ctx, req, resp)
	return resp, nil
}

// StreamAsk runs the same pipeline as Ask. Citations are reported before
// generation starts and every generated fragment is passed to onToken.
func (s *RAGService) StreamAsk(ctx context.Context, req models.AskRequest, onCitations func([]models.Citation) error, onToken func(string) error) (*models.AskResponse, error) {
	hits, err := s.retrieve(ctx, &req)
	if err != nil {
		return nil, err
	}
	citations := buildCitations(hits)
	if err := onCitations(citations); err != nil {
		return nil, err
	}

	answer, err := s.llm.StreamChat(ctx, buildMessages(req.Question, hits), onToken)
	if err != nil {
		return nil, errors.New502Error(fmt.Sprintf("model call failed: %v", err), err)
	}

	resp := &models.AskResponse{Answer: answer, Citations: citations}
	s.record(ctx, req, resp)
	return resp, nil
}

// retrieve validates req in place and returns the ranked chunks. An empty
// index is populated from arXiv with req.Query before giving up.
func (s *RAGService) retrieve(ctx context.Context, req *models.AskRequest) ([]vectordb.Hit, error) {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return nil, errors.New400Error("question must not be empty")
	}
	req.TopK = clamp(req.TopK, models.DefaultTopK, maxTopK)
	req.MaxResults = clamp(req.MaxResults, models.DefaultAskMaxResults, maxSearchResults)

	hits, err := s.retriever.Search(ctx, req.Question, req.TopK)
	if err != nil {
		return nil, errors.New502Error(fmt.Sprintf("retrieval failed: %v", err), err)
	}

	if len(hits) == 0 && strings.TrimSpace(req.Query) != "" {
		zerolog.Ctx(ctx).Info().Str("query", req.Query).Msg("nothing retrieved, searching arXiv first")
		_, err := s.Search(ctx, models.SearchRequest{
			Query:      req.Query,
			MaxResults: req.MaxResults,
			SortBy:     SortRelevance,
			Page:       1,
			PageSize:   req.MaxResults,
		})
		if err != nil {
			return nil, err
		}
		hits, err = s.retriever.Search(ctx, req.Question, req.TopK)
		if err != nil {
			return nil, errors.New502Error(fmt.Sprintf("retrieval failed: %v", err), err)
		}
	}

	if len(hits) == 0 {
		return nil, errors.New404Error("no relevant paper content found")
	}
	return hits, nil
}

func (s *RAGService) record(ctx context.Context, req models.AskRequest, resp *models.AskResponse) {
	if s.history == nil {
		return
	}
	rec := &models.AskRecord{
		Question:  req.Question,
		Query:     req.Query,
		Answer:    resp.Answer,
		Provider:  s.llm.Name(),
		Citations: resp.Citations,
	}
	if err := s.history.SaveAskRecord(ctx, rec); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to record answer")
	}
}

func buildContext(hits []vectordb.Hit) string {
	var b strings.Builder
	b.WriteString("The following content was retrieved from relevant papers:\n\n")
	for i, h := range hits {
		fmt.Fprintf(&b, "[Paper %d] %s\n", i+1, h.Chunk.Title)
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(h.Chunk.Authors, ", "))
		fmt.Fprintf(&b, "Content: %s\n\n", h.Chunk.Content)
	}
	return b.String()
}

func buildMessages(question string, hits []vectordb.Hit) []llm.Message {
	prompt := fmt.Sprintf(`Answer the user's question based on the paper content below.

Paper content:
%s
User question: %s

Give an accurate, professional answer grounded in the paper content above and name the sources you use. If the content is not sufficient to answer the question, say so.`, buildContext(hits), question)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemInstruction},
		{Role: llm.RoleUser, Content: prompt},
	}
}

func buildCitations(hits []vectordb.Hit) []models.Citation {
	citations := make([]models.Citation, 0, len(hits))
	for _, h := range hits {
		citations = append(citations, models.Citation{
			PaperID:    h.Chunk.PaperID,
			Title:      h.Chunk.Title,
			Authors:    h.Chunk.Authors,
			ArxivURL:   h.Chunk.ArxivURL,
			PDFURL:     h.Chunk.PDFURL,
			ChunkIndex: h.Chunk.ChunkIndex,
			Content:    snippet(h.Chunk.Content, citationSnippet),
		})
	}
	return citations
}

func snippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}

// GetPaper returns a stored paper, fetching and storing it from arXiv on a
// miss.
func (s *RAGService) GetPaper(ctx context.Context, paperID string) (*models.Paper, error) {
	paper, err := s.store.GetPaper(ctx, paperID)
	if err == nil {
		return paper, nil
	}
	if !stderrors.Is(err, ErrPaperNotFound) {
		return nil, err
	}

	paper, err = s.arxiv.GetPaper(ctx, paperID)
	if err != nil {
		return nil, fmt.Errorf("get paper: %w", err)
	}
	if err := s.store.SavePapers(ctx, []models.Paper{*paper}); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("paper_id", paperID).Msg("failed to persist paper")
	}
	return paper, nil
}

// IngestFullText indexes the text of the paper's PDF and returns the number
// of chunks added.
func (s *RAGService) IngestFullText(ctx context.Context, paperID string) (int, error) {
	paper, err := s.GetPaper(ctx, paperID)
	if err != nil {
		return 0, err
	}
	text, err := s.fullText.FetchFullText(ctx, paper.PaperID)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: %w", paperID, err)
	}

	chunks := append(vectordb.ChunksForPaper(*paper, s.chunkSize), vectordb.FullTextChunks(*paper, text, s.chunkSize)...)
	if err := s.addChunks(ctx, chunks, IndexUpdate{PaperID: paper.PaperID}); err != nil {
		return 0, errors.New502Error(fmt.Sprintf("failed to index paper: %v", err), err)
	}
	return len(chunks), nil
}

func (s *RAGService) IndexStats() vectordb.Stats {
	return s.retriever.Stats()
}

func (s *RAGService) History(ctx context.Context, limit int) ([]models.AskRecord, error) {
	if s.history == nil {
		return []models.AskRecord{}, nil
	}
	return s.history.RecentAskRecords(ctx, limit)
}

// CheckModel pings the language model.
func (s *RAGService) CheckModel(ctx context.Context) error {
	return s.llm.Ping(ctx)
}

func (s *RAGService) ProviderName() string {
	return s.llm.Name()
}

// clamp maps non-positive values to def and caps the result at max.
func clamp(v, def, limit int) int {
	if v <= 0 {
		return def
	}
	if v > limit {
		return limit
	}
	return v
}
