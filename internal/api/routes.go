package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"arxiv_rag_go_backend/internal/auth"
	"arxiv_rag_go_backend/internal/errors"
	"arxiv_rag_go_backend/internal/models"
	"arxiv_rag_go_backend/internal/vectordb"

	"github.com/gin-gonic/gin"
)

const (
	Version             = "1.0.0"
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// RAG is the service behind the HTTP API.
type RAG interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
	Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error)
	GetPaper(ctx context.Context, paperID string) (*models.Paper, error)
	IngestFullText(ctx context.Context, paperID string) (int, error)
	IndexStats() vectordb.Stats
	History(ctx context.Context, limit int) ([]models.AskRecord, error)
	CheckModel(ctx context.Context) error
	ProviderName() string
}

// ReferenceSource lists the bibliography of a paper.
type ReferenceSource interface {
	LoadReferences(ctx context.Context, paperID string) ([]models.Reference, error)
}

// SetupRoutes registers the API. The references route is only served when
// refs is non-nil.
func SetupRoutes(r *gin.Engine, rag RAG, refs ReferenceSource, authSecret string) {
	r.GET("/", rootHandler)
	r.GET("/health", healthHandler(rag))
	r.POST("/search", searchHandler(rag))
	r.POST("/ask", auth.AuthMiddleware(authSecret), askHandler(rag))
	r.GET("/index/stats", indexStatsHandler(rag))
	r.GET("/history", historyHandler(rag))

	papers := r.Group("/papers")
	{
		papers.GET("/:paper_id", getPaperHandler(rag))
		papers.GET("/:paper_id/bibtex", getPaperBibTeXHandler(rag))
		papers.POST("/:paper_id/ingest", auth.AuthMiddleware(authSecret), ingestPaperHandler(rag))
		if refs != nil {
			papers.GET("/:paper_id/references", getReferencesHandler(refs))
		}
	}
}

func rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "ArXiv RAG API is running",
		"version": Version,
	})
}

func searchHandler(rag RAG) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := models.NewSearchRequest()
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.HandleError(c, errors.New400Error("invalid request body: "+err.Error()))
			return
		}

		resp, err := rag.Search(c.Request.Context(), req)
		if err != nil {
			errors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func askHandler(rag RAG) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := models.NewAskRequest()
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.HandleError(c, errors.New400Error("invalid request body: "+err.Error()))
			return
		}

		resp, err := rag.Ask(c.Request.Context(), req)
		if err != nil {
			errors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func healthHandler(rag RAG) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := rag.CheckModel(c.Request.Context()); err != nil {
			errors.HandleError(c, errors.New503Error("service unavailable: "+err.Error(), err))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":            "healthy",
			"ollama_connection": "ok",
			"provider":          rag.ProviderName(),
			"timestamp":         time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func indexStatsHandler(rag RAG) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, rag.IndexStats())
	}
}

func historyHandler(rag RAG) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultHistoryLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				errors.HandleError(c, errors.New400Error("limit must be a positive integer"))
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		records, err := rag.History(c.Request.Context(), limit)
		if err != nil {
			errors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": records})
	}
}
