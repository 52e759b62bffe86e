package services

import (
	"context"

	"arxiv_rag_go_backend/internal/models"

	"gorm.io/gorm"
)

// ReferenceStore keeps parsed bibliographies so a paper's source archive is
// downloaded once.
type ReferenceStore interface {
	SaveReferences(ctx context.Context, paperID string, refs []models.Reference) error
	// GetReferences reports ok=false when nothing is stored for the paper.
	GetReferences(ctx context.Context, paperID string) (refs []models.Reference, ok bool, err error)
}

type DefaultReferenceStore struct {
	db *gorm.DB
}

func NewReferenceStore(db *gorm.DB) *DefaultReferenceStore {
	return &DefaultReferenceStore{db: db}
}

// SaveReferences replaces the stored bibliography of paperID.
func (s *DefaultReferenceStore) SaveReferences(ctx context.Context, paperID string, refs []models.Reference) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_paper_id = ?", paperID).Delete(&models.Reference{}).Error; err != nil {
			return err
		}
		if len(refs) == 0 {
			return nil
		}
		rows := make([]models.Reference, len(refs))
		for i, r := range refs {
			r.ID = 0
			r.ParentPaperID = paperID
			r.Position = i
			rows[i] = r
		}
		return tx.Create(&rows).Error
	})
}

func (s *DefaultReferenceStore) GetReferences(ctx context.Context, paperID string) ([]models.Reference, bool, error) {
	var refs []models.Reference
	err := s.db.WithContext(ctx).
		Where("parent_paper_id = ?", paperID).
		Order("position").
		Find(&refs).Error
	if err != nil {
		return nil, false, err
	}
	return refs, len(refs) > 0, nil
}
