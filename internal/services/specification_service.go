package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"forgeline/internal/models"
	"forgeline/internal/repositories"
)

// SpecificationService fronts the specification store that pipeline starts
// resolve references against.
type SpecificationService interface {
	Startup(ctx context.Context)
	Put(spec *models.Specification) (*models.SpecificationRecord, error)
	Resolve(ref string) (*models.Specification, error)
	List(limit int) ([]models.SpecificationRecord, error)
	ListByProject(projectName string) ([]models.SpecificationRecord, error)
}

type specificationService struct {
	repo repositories.SpecificationRepository
	ctx  context.Context
}

func NewSpecificationService(repo repositories.SpecificationRepository) SpecificationService {
	return &specificationService{repo: repo}
}

func (s *specificationService) Startup(ctx context.Context) {
	s.ctx = ctx
}

func (s *specificationService) Put(spec *models.Specification) (*models.SpecificationRecord, error) {
	if spec == nil || spec.Empty() {
		return nil, fmt.Errorf("specification is required")
	}
	projectName := strings.TrimSpace(spec.ProjectName)
	if projectName == "" {
		projectName = "Untitled Project"
	}
	spec.ProjectName = projectName

	content, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode specification: %w", err)
	}
	record := &models.SpecificationRecord{
		ID:          uuid.NewString(),
		ProjectName: projectName,
		ContentJSON: string(content),
	}
	if err := s.repo.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Resolve fetches a stored specification by reference. A missing record
// returns (nil, nil); the caller decides how absence is surfaced.
func (s *specificationService) Resolve(ref string) (*models.Specification, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("specification reference is required")
	}
	record, err := s.repo.GetByID(ref)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	var spec models.Specification
	if err := json.Unmarshal([]byte(record.ContentJSON), &spec); err != nil {
		return nil, fmt.Errorf("decode specification %s: %w", ref, err)
	}
	if spec.ProjectName == "" {
		spec.ProjectName = record.ProjectName
	}
	return &spec, nil
}

func (s *specificationService) List(limit int) ([]models.SpecificationRecord, error) {
	return s.repo.List(limit)
}

func (s *specificationService) ListByProject(projectName string) ([]models.SpecificationRecord, error) {
	projectName = strings.TrimSpace(projectName)
	if projectName == "" {
		return nil, fmt.Errorf("project name is required")
	}
	return s.repo.ListByProject(projectName)
}
