package services

import (
	"forgeline/internal/models"
)

type sessionRepositoryMock struct {
	CreateFunc           func(session *models.Session) error
	GetByIDFunc          func(id string) (*models.Session, error)
	ListFunc             func(limit int) ([]models.Session, error)
	TransitionStatusFunc func(id string, from, to models.SessionStatus) error
	SetManifestFunc      func(id string, manifestJSON string) error
	MarkFailedFunc       func(id string, message string) error
	MarkCompletedFunc    func(id string) error
}

func (m *sessionRepositoryMock) Create(session *models.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(session)
	}
	return nil
}

func (m *sessionRepositoryMock) GetByID(id string) (*models.Session, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(id)
	}
	return nil, nil
}

func (m *sessionRepositoryMock) List(limit int) ([]models.Session, error) {
	if m.ListFunc != nil {
		return m.ListFunc(limit)
	}
	return nil, nil
}

func (m *sessionRepositoryMock) TransitionStatus(id string, from, to models.SessionStatus) error {
	if m.TransitionStatusFunc != nil {
		return m.TransitionStatusFunc(id, from, to)
	}
	return nil
}

func (m *sessionRepositoryMock) SetManifest(id string, manifestJSON string) error {
	if m.SetManifestFunc != nil {
		return m.SetManifestFunc(id, manifestJSON)
	}
	return nil
}

func (m *sessionRepositoryMock) MarkFailed(id string, message string) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(id, message)
	}
	return nil
}

func (m *sessionRepositoryMock) MarkCompleted(id string) error {
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(id)
	}
	return nil
}

type fileResultRepositoryMock struct {
	UpsertFunc              func(result *models.FileResult) error
	GetBySessionAndPathFunc func(sessionID, path string) (*models.FileResult, error)
	ListBySessionFunc       func(sessionID string) ([]models.FileResult, error)
	CountBySessionFunc      func(sessionID string) (int64, error)
}

func (m *fileResultRepositoryMock) Upsert(result *models.FileResult) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(result)
	}
	return nil
}

func (m *fileResultRepositoryMock) GetBySessionAndPath(sessionID, path string) (*models.FileResult, error) {
	if m.GetBySessionAndPathFunc != nil {
		return m.GetBySessionAndPathFunc(sessionID, path)
	}
	return nil, nil
}

func (m *fileResultRepositoryMock) ListBySession(sessionID string) ([]models.FileResult, error) {
	if m.ListBySessionFunc != nil {
		return m.ListBySessionFunc(sessionID)
	}
	return nil, nil
}

func (m *fileResultRepositoryMock) CountBySession(sessionID string) (int64, error) {
	if m.CountBySessionFunc != nil {
		return m.CountBySessionFunc(sessionID)
	}
	return 0, nil
}

type specificationRepositoryMock struct {
	CreateFunc        func(record *models.SpecificationRecord) error
	GetByIDFunc       func(id string) (*models.SpecificationRecord, error)
	ListByProjectFunc func(projectName string) ([]models.SpecificationRecord, error)
	ListFunc          func(limit int) ([]models.SpecificationRecord, error)
}

func (m *specificationRepositoryMock) Create(record *models.SpecificationRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(record)
	}
	return nil
}

func (m *specificationRepositoryMock) GetByID(id string) (*models.SpecificationRecord, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(id)
	}
	return nil, nil
}

func (m *specificationRepositoryMock) ListByProject(projectName string) ([]models.SpecificationRecord, error) {
	if m.ListByProjectFunc != nil {
		return m.ListByProjectFunc(projectName)
	}
	return nil, nil
}

func (m *specificationRepositoryMock) List(limit int) ([]models.SpecificationRecord, error) {
	if m.ListFunc != nil {
		return m.ListFunc(limit)
	}
	return nil, nil
}
