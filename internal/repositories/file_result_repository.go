package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"forgeline/internal/models"
)

type FileResultRepository interface {
	// Upsert inserts or replaces the result for (session_id, path).
	Upsert(result *models.FileResult) error
	GetBySessionAndPath(sessionID, path string) (*models.FileResult, error)
	ListBySession(sessionID string) ([]models.FileResult, error)
	CountBySession(sessionID string) (int64, error)
}

type fileResultRepository struct {
	db *gorm.DB
}

func NewFileResultRepository(db *gorm.DB) FileResultRepository {
	return &fileResultRepository{db: db}
}

func (r *fileResultRepository) Upsert(result *models.FileResult) error {
	if result == nil {
		return fmt.Errorf("result is required")
	}
	if result.SessionID == "" || result.Path == "" {
		return fmt.Errorf("session id and path are required")
	}
	// Upsert on composite unique index
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category", "content", "analysis_json", "fix_applied", "state",
			"error_message", "publish_revision", "publish_url", "published_at",
			"publish_error", "updated_at",
		}),
	}).Create(result).Error
}

func (r *fileResultRepository) GetBySessionAndPath(sessionID, path string) (*models.FileResult, error) {
	var result models.FileResult
	res := r.db.Where("session_id = ? AND path = ?", sessionID, path).Take(&result)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &result, nil
}

func (r *fileResultRepository) ListBySession(sessionID string) ([]models.FileResult, error) {
	var results []models.FileResult
	if err := r.db.Where("session_id = ?", sessionID).Order("path asc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fileResultRepository) CountBySession(sessionID string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.FileResult{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
