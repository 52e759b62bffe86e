package services

import (
	"context"
	stderrors "errors"
	"fmt"

	"arxiv_rag_go_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertBatchSize keeps multi-row inserts under sqlite's bound-variable limit.
const upsertBatchSize = 50

// ErrPaperNotFound is returned by PaperStore.GetPaper for unknown ids.
var ErrPaperNotFound = stderrors.New("paper not found")

// PaperStore persists fetched papers and their indexed chunks.
type PaperStore interface {
	SavePapers(ctx context.Context, papers []models.Paper) error
	GetPaper(ctx context.Context, paperID string) (*models.Paper, error)
	SaveChunks(ctx context.Context, chunks []models.Chunk) error
	AllChunks(ctx context.Context) ([]models.Chunk, error)
}

type DefaultPaperStore struct {
	db *gorm.DB
}

func NewPaperStore(db *gorm.DB) *DefaultPaperStore {
	return &DefaultPaperStore{db: db}
}

// SavePapers creates new papers or updates existing ones by paper_id.
func (s *DefaultPaperStore) SavePapers(ctx context.Context, papers []models.Paper) error {
	if len(papers) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "paper_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "authors", "summary", "published", "updated", "arxiv_url", "pdf_url", "updated_at"}),
	}).CreateInBatches(&papers, upsertBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to save papers: %w", err)
	}
	return nil
}

func (s *DefaultPaperStore) GetPaper(ctx context.Context, paperID string) (*models.Paper, error) {
	var paper models.Paper
	err := s.db.WithContext(ctx).Where("paper_id = ?", paperID).First(&paper).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaperNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load paper %s: %w", paperID, err)
	}
	return &paper, nil
}

// SaveChunks upserts chunks on their (paper_id, chunk_index) identity.
func (s *DefaultPaperStore) SaveChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "paper_id"}, {Name: "chunk_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "authors", "arxiv_url", "pdf_url", "content", "source"}),
	}).CreateInBatches(&chunks, upsertBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to save chunks: %w", err)
	}
	return nil
}

func (s *DefaultPaperStore) AllChunks(ctx context.Context) ([]models.Chunk, error) {
	var chunks []models.Chunk
	if err := s.db.WithContext(ctx).Order("id").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	return chunks, nil
}
