package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"forgeline/internal/models"
)

type SpecificationRepository interface {
	Create(record *models.SpecificationRecord) error
	GetByID(id string) (*models.SpecificationRecord, error)
	ListByProject(projectName string) ([]models.SpecificationRecord, error)
	List(limit int) ([]models.SpecificationRecord, error)
}

type specificationRepository struct {
	db *gorm.DB
}

func NewSpecificationRepository(db *gorm.DB) SpecificationRepository {
	return &specificationRepository{db: db}
}

func (r *specificationRepository) Create(record *models.SpecificationRecord) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if record.Version == 0 {
		// New records start at version 1; replacements bump past the latest.
		var latest models.SpecificationRecord
		res := r.db.Where("project_name = ?", record.ProjectName).Order("version desc").Take(&latest)
		if res.Error != nil && !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return res.Error
		}
		record.Version = latest.Version + 1
	}
	return r.db.Create(record).Error
}

func (r *specificationRepository) GetByID(id string) (*models.SpecificationRecord, error) {
	var record models.SpecificationRecord
	res := r.db.Where("id = ?", id).Take(&record)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &record, nil
}

func (r *specificationRepository) ListByProject(projectName string) ([]models.SpecificationRecord, error) {
	var records []models.SpecificationRecord
	if err := r.db.Where("project_name = ?", projectName).Order("version desc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *specificationRepository) List(limit int) ([]models.SpecificationRecord, error) {
	var records []models.SpecificationRecord
	q := r.db.Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
