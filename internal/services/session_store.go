package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"forgeline/internal/models"
	"forgeline/internal/repositories"
)

// SessionStore is the single source of truth for session and per-file state.
// Workers and the orchestrator persist every stage outcome here before
// advancing, so a crash leaves the session in its last recorded state.
type SessionStore interface {
	Startup(ctx context.Context)
	CreateSession(spec *models.Specification, target models.TargetConfig, publish *models.PublishTarget) (*models.Session, error)
	GetSession(id string) (*models.Session, error)
	Status(id string) (models.SessionStatus, error)
	Snapshot(id string) (*models.SessionSnapshot, error)
	ListSessions(limit int) ([]models.Session, error)
	Transition(id string, from, to models.SessionStatus) error
	SetManifest(id string, manifest *models.Manifest) error
	Fail(id string, message string) error
	Complete(id string) error
	UpsertFileResult(sessionID string, outcome *models.FileOutcome) error
	ListFileResults(sessionID string) ([]models.FileOutcome, error)
}

type sessionStore struct {
	sessions repositories.SessionRepository
	results  repositories.FileResultRepository
	ctx      context.Context
}

func NewSessionStore(sessions repositories.SessionRepository, results repositories.FileResultRepository) SessionStore {
	return &sessionStore{sessions: sessions, results: results}
}

func (s *sessionStore) Startup(ctx context.Context) {
	s.ctx = ctx
}

func (s *sessionStore) CreateSession(spec *models.Specification, target models.TargetConfig, publish *models.PublishTarget) (*models.Session, error) {
	if spec == nil || spec.Empty() {
		return nil, fmt.Errorf("specification is required")
	}
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode specification: %w", err)
	}

	session := &models.Session{
		ID:       uuid.NewString(),
		Status:   string(models.SessionPending),
		SpecJSON: string(specJSON),
		Frontend: strings.TrimSpace(target.Frontend),
		Backend:  strings.TrimSpace(target.Backend),
		Database: strings.TrimSpace(target.Database),
	}
	if publish != nil {
		session.PublishOwner = strings.TrimSpace(publish.Owner)
		session.PublishRepo = strings.TrimSpace(publish.Repo)
		session.PublishBranch = strings.TrimSpace(publish.Branch)
		if session.PublishOwner == "" || session.PublishRepo == "" {
			return nil, fmt.Errorf("publish target owner and repo are required")
		}
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *sessionStore) GetSession(id string) (*models.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("session id is required")
	}
	return s.sessions.GetByID(id)
}

func (s *sessionStore) Status(id string) (models.SessionStatus, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", fmt.Errorf("session %s not found", id)
	}
	return models.SessionStatus(session.Status), nil
}

func (s *sessionStore) ListSessions(limit int) ([]models.Session, error) {
	return s.sessions.List(limit)
}

func (s *sessionStore) Transition(id string, from, to models.SessionStatus) error {
	return s.sessions.TransitionStatus(id, from, to)
}

func (s *sessionStore) SetManifest(id string, manifest *models.Manifest) error {
	if manifest == nil {
		return fmt.Errorf("manifest is required")
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return s.sessions.SetManifest(id, string(data))
}

func (s *sessionStore) Fail(id string, message string) error {
	return s.sessions.MarkFailed(id, message)
}

func (s *sessionStore) Complete(id string) error {
	return s.sessions.MarkCompleted(id)
}

func (s *sessionStore) UpsertFileResult(sessionID string, outcome *models.FileOutcome) error {
	if outcome == nil {
		return fmt.Errorf("outcome is required")
	}
	record, err := encodeFileOutcome(sessionID, outcome)
	if err != nil {
		return err
	}
	return s.results.Upsert(record)
}

func (s *sessionStore) ListFileResults(sessionID string) ([]models.FileOutcome, error) {
	records, err := s.results.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}
	outcomes := make([]models.FileOutcome, 0, len(records))
	for i := range records {
		outcome, err := decodeFileResult(&records[i])
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, nil
}

// Snapshot assembles the caller-facing view: decoded manifest plus file
// results in manifest order. Results are merged by path, not by completion
// order, so the list is deterministic for a fixed manifest.
func (s *sessionStore) Snapshot(id string) (*models.SessionSnapshot, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %s not found", id)
	}

	snapshot := &models.SessionSnapshot{
		ID:          session.ID,
		Status:      models.SessionStatus(session.Status),
		Target:      session.Target(),
		Publish:     session.Publish(),
		Error:       session.ErrorMessage,
		CreatedAt:   session.CreatedAt,
		CompletedAt: session.CompletedAt,
	}

	if session.ManifestJSON != "" {
		var manifest models.Manifest
		if err := json.Unmarshal([]byte(session.ManifestJSON), &manifest); err != nil {
			return nil, fmt.Errorf("decode manifest for session %s: %w", id, err)
		}
		snapshot.Manifest = &manifest
	}

	outcomes, err := s.ListFileResults(id)
	if err != nil {
		return nil, err
	}
	snapshot.Results = OrderByManifest(snapshot.Manifest, outcomes)
	return snapshot, nil
}

// OrderByManifest returns outcomes reordered to match the manifest entry
// order. Outcomes without a manifest (or for paths the manifest does not
// list) keep their stored order at the tail.
func OrderByManifest(manifest *models.Manifest, outcomes []models.FileOutcome) []models.FileOutcome {
	if manifest == nil || len(outcomes) == 0 {
		return outcomes
	}
	byPath := make(map[string]models.FileOutcome, len(outcomes))
	for _, o := range outcomes {
		byPath[o.Path] = o
	}
	ordered := make([]models.FileOutcome, 0, len(outcomes))
	seen := make(map[string]bool, len(outcomes))
	for _, entry := range manifest.Entries {
		if o, ok := byPath[entry.Path]; ok {
			ordered = append(ordered, o)
			seen[entry.Path] = true
		}
	}
	for _, o := range outcomes {
		if !seen[o.Path] {
			ordered = append(ordered, o)
		}
	}
	return ordered
}

func encodeFileOutcome(sessionID string, outcome *models.FileOutcome) (*models.FileResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(outcome.Path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	record := &models.FileResult{
		SessionID:    sessionID,
		Path:         outcome.Path,
		Category:     string(outcome.Category),
		Content:      outcome.Content,
		FixApplied:   outcome.FixApplied,
		State:        string(outcome.State),
		ErrorMessage: outcome.Error,
		PublishError: outcome.PublishError,
		UpdatedAt:    time.Now(),
	}
	if outcome.Analysis != nil {
		data, err := json.Marshal(outcome.Analysis)
		if err != nil {
			return nil, fmt.Errorf("encode analysis: %w", err)
		}
		record.AnalysisJSON = string(data)
	}
	if outcome.PublishRecord != nil {
		record.PublishRevision = outcome.PublishRecord.Revision
		record.PublishURL = outcome.PublishRecord.URL
		publishedAt := outcome.PublishRecord.PublishedAt
		record.PublishedAt = &publishedAt
	}
	return record, nil
}

func decodeFileResult(record *models.FileResult) (*models.FileOutcome, error) {
	outcome := &models.FileOutcome{
		Path:         record.Path,
		Category:     models.FileCategory(record.Category),
		Content:      record.Content,
		FixApplied:   record.FixApplied,
		State:        models.FileState(record.State),
		Error:        record.ErrorMessage,
		PublishError: record.PublishError,
	}
	if record.AnalysisJSON != "" {
		var report models.StaticAnalysisReport
		if err := json.Unmarshal([]byte(record.AnalysisJSON), &report); err != nil {
			return nil, fmt.Errorf("decode analysis for %s: %w", record.Path, err)
		}
		outcome.Analysis = &report
	}
	if record.PublishRevision != "" && record.PublishedAt != nil {
		outcome.PublishRecord = &models.PublishRecord{
			Revision:    record.PublishRevision,
			URL:         record.PublishURL,
			PublishedAt: *record.PublishedAt,
		}
	}
	return outcome, nil
}
