package pipeline

import (
	"context"
	"strings"
	"sync"

	"forgeline/internal/models"
)

// completionMock routes prompts to canned responses by a marker the prompt
// template is known to contain.
type completionMock struct {
	CompleteFunc func(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)

	mu    sync.Mutex
	calls []string
}

func (m *completionMock) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, promptKind(prompt))
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, maxTokens, temperature)
	}
	return "", nil
}

func (m *completionMock) callsOf(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == kind {
			n++
		}
	}
	return n
}

func promptKind(prompt string) string {
	switch {
	case strings.Contains(prompt, "planning the file layout"):
		return "manifest"
	case strings.Contains(prompt, "implementing one file"):
		return "generate"
	case strings.Contains(prompt, "static-analysis tool"):
		return "review"
	case strings.Contains(prompt, "correcting a source file"):
		return "fix"
	default:
		return "unknown"
	}
}

// storeMock implements services.SessionStore. Upserted outcomes are kept per
// path so tests can inspect the last recorded state.
type storeMock struct {
	CreateSessionFunc    func(spec *models.Specification, target models.TargetConfig, publish *models.PublishTarget) (*models.Session, error)
	GetSessionFunc       func(id string) (*models.Session, error)
	TransitionFunc       func(id string, from, to models.SessionStatus) error
	SetManifestFunc      func(id string, manifest *models.Manifest) error
	FailFunc             func(id string, message string) error
	CompleteFunc         func(id string) error
	UpsertFileResultFunc func(sessionID string, outcome *models.FileOutcome) error
	SnapshotFunc         func(id string) (*models.SessionSnapshot, error)

	mu          sync.Mutex
	transitions []string
	upserts     map[string]models.FileOutcome
	failures    []string
}

func newStoreMock() *storeMock {
	return &storeMock{upserts: make(map[string]models.FileOutcome)}
}

func (m *storeMock) Startup(ctx context.Context) {}

func (m *storeMock) CreateSession(spec *models.Specification, target models.TargetConfig, publish *models.PublishTarget) (*models.Session, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(spec, target, publish)
	}
	session := &models.Session{
		ID:       "session-1",
		Status:   string(models.SessionPending),
		Frontend: target.Frontend,
		Backend:  target.Backend,
		Database: target.Database,
	}
	if publish != nil {
		session.PublishOwner = publish.Owner
		session.PublishRepo = publish.Repo
		session.PublishBranch = publish.Branch
	}
	return session, nil
}

func (m *storeMock) GetSession(id string) (*models.Session, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(id)
	}
	return &models.Session{ID: id, Status: string(models.SessionPending)}, nil
}

func (m *storeMock) Status(id string) (models.SessionStatus, error) {
	session, err := m.GetSession(id)
	if err != nil {
		return "", err
	}
	return models.SessionStatus(session.Status), nil
}

func (m *storeMock) Snapshot(id string) (*models.SessionSnapshot, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(id)
	}
	return &models.SessionSnapshot{ID: id}, nil
}

func (m *storeMock) ListSessions(limit int) ([]models.Session, error) {
	return nil, nil
}

func (m *storeMock) Transition(id string, from, to models.SessionStatus) error {
	m.mu.Lock()
	m.transitions = append(m.transitions, string(from)+"->"+string(to))
	m.mu.Unlock()
	if m.TransitionFunc != nil {
		return m.TransitionFunc(id, from, to)
	}
	return nil
}

func (m *storeMock) SetManifest(id string, manifest *models.Manifest) error {
	if m.SetManifestFunc != nil {
		return m.SetManifestFunc(id, manifest)
	}
	return nil
}

func (m *storeMock) Fail(id string, message string) error {
	m.mu.Lock()
	m.failures = append(m.failures, message)
	m.mu.Unlock()
	if m.FailFunc != nil {
		return m.FailFunc(id, message)
	}
	return nil
}

func (m *storeMock) Complete(id string) error {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(id)
	}
	return nil
}

func (m *storeMock) UpsertFileResult(sessionID string, outcome *models.FileOutcome) error {
	if m.UpsertFileResultFunc != nil {
		if err := m.UpsertFileResultFunc(sessionID, outcome); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.upserts[outcome.Path] = *outcome
	m.mu.Unlock()
	return nil
}

func (m *storeMock) ListFileResults(sessionID string) ([]models.FileOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcomes := make([]models.FileOutcome, 0, len(m.upserts))
	for _, o := range m.upserts {
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

func (m *storeMock) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserts)
}

func (m *storeMock) lastOutcome(path string) (models.FileOutcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.upserts[path]
	return o, ok
}

// publisherMock implements publish.Publisher.
type publisherMock struct {
	PutFileFunc func(ctx context.Context, target models.PublishTarget, path, content, message string) (*models.PublishRecord, error)

	mu    sync.Mutex
	calls int
}

func (m *publisherMock) PutFile(ctx context.Context, target models.PublishTarget, path, content, message string) (*models.PublishRecord, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.PutFileFunc != nil {
		return m.PutFileFunc(ctx, target, path, content, message)
	}
	return &models.PublishRecord{Revision: "abc123"}, nil
}

func (m *publisherMock) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
