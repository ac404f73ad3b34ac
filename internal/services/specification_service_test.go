package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"forgeline/internal/models"
)

func TestSpecificationService_Put(t *testing.T) {
	var created *models.SpecificationRecord
	repo := &specificationRepositoryMock{
		CreateFunc: func(record *models.SpecificationRecord) error {
			created = record
			return nil
		},
	}
	svc := NewSpecificationService(repo)

	record, err := svc.Put(validSpec())

	assert.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "shop", record.ProjectName)
	assert.Same(t, created, record)
	assert.Contains(t, record.ContentJSON, "A small web shop")
}

func TestSpecificationService_Put_DefaultsProjectName(t *testing.T) {
	svc := NewSpecificationService(&specificationRepositoryMock{})

	record, err := svc.Put(&models.Specification{
		ExecutiveSummary:       "summary",
		FunctionalRequirements: []string{"do a thing"},
	})

	assert.NoError(t, err)
	assert.Equal(t, "Untitled Project", record.ProjectName)
}

func TestSpecificationService_Put_RequiresContent(t *testing.T) {
	svc := NewSpecificationService(&specificationRepositoryMock{})

	_, err := svc.Put(nil)
	assert.EqualError(t, err, "specification is required")

	_, err = svc.Put(&models.Specification{ProjectName: "empty"})
	assert.EqualError(t, err, "specification is required")
}

func TestSpecificationService_Resolve(t *testing.T) {
	repo := &specificationRepositoryMock{
		GetByIDFunc: func(id string) (*models.SpecificationRecord, error) {
			assert.Equal(t, "ref-1", id)
			return &models.SpecificationRecord{
				ID:          id,
				ProjectName: "shop",
				ContentJSON: `{"executiveSummary": "stored summary", "functionalRequirements": ["r1"]}`,
			}, nil
		},
	}
	svc := NewSpecificationService(repo)

	spec, err := svc.Resolve(" ref-1 ")

	assert.NoError(t, err)
	assert.Equal(t, "stored summary", spec.ExecutiveSummary)
	assert.Equal(t, "shop", spec.ProjectName, "record project name backfills the decoded spec")
}

func TestSpecificationService_Resolve_Missing(t *testing.T) {
	svc := NewSpecificationService(&specificationRepositoryMock{})

	spec, err := svc.Resolve("unknown")

	assert.NoError(t, err)
	assert.Nil(t, spec, "absence is reported as nil, not as an error")
}

func TestSpecificationService_Resolve_RequiresRef(t *testing.T) {
	svc := NewSpecificationService(&specificationRepositoryMock{})

	_, err := svc.Resolve("  ")
	assert.EqualError(t, err, "specification reference is required")
}

func TestSpecificationService_ListByProject_RequiresName(t *testing.T) {
	svc := NewSpecificationService(&specificationRepositoryMock{})

	_, err := svc.ListByProject(" ")
	assert.EqualError(t, err, "project name is required")
}
