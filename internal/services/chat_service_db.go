package services

import (
	"context"
	"fmt"

	"arxiv_rag_go_backend/internal/models"

	"gorm.io/gorm"
)

// HistoryStore records answered questions.
type HistoryStore interface {
	SaveAskRecord(ctx context.Context, record *models.AskRecord) error
	RecentAskRecords(ctx context.Context, limit int) ([]models.AskRecord, error)
}

type DefaultHistoryStore struct {
	db *gorm.DB
}

func NewHistoryStore(db *gorm.DB) *DefaultHistoryStore {
	return &DefaultHistoryStore{db: db}
}

func (s *DefaultHistoryStore) SaveAskRecord(ctx context.Context, record *models.AskRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save ask record: %w", err)
	}
	return nil
}

// RecentAskRecords returns the newest records first.
func (s *DefaultHistoryStore) RecentAskRecords(ctx context.Context, limit int) ([]models.AskRecord, error) {
	var records []models.AskRecord
	err := s.db.WithContext(ctx).Order("created_at desc, id desc").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load ask history: %w", err)
	}
	return records, nil
}
