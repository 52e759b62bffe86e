package services

import (
	"context"

	"arxiv_rag_go_backend/internal/models"
)

type PaperSearcher interface {
	SearchPapers(ctx context.Context, query string, maxResults int, sortBy string) ([]models.Paper, error)
	GetPaper(ctx context.Context, paperID string) (*models.Paper, error)
}

type FullTextFetcher interface {
	FetchFullText(ctx context.Context, paperID string) (string, error)
}

type EventPublisher interface {
	Publish(topic string, msg interface{}) int
}
