package models

import "time"

// SessionStatus is the lifecycle state of a generation session.
type SessionStatus string

const (
	SessionPending     SessionStatus = "pending"
	SessionAnalyzing   SessionStatus = "analyzing"
	SessionGenerating  SessionStatus = "generating"
	SessionAggregating SessionStatus = "aggregating"
	SessionCompleted   SessionStatus = "completed"
	SessionFailed      SessionStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// TargetConfig holds the technology choices a session generates against.
type TargetConfig struct {
	Frontend string `json:"frontend"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
}

// PublishTarget is an optional source-control destination for generated files.
type PublishTarget struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
}

// Session is one end-to-end run of the generation pipeline. The specification
// is immutable once the run starts; manifest and error are filled in as the
// pipeline advances. File results live in their own table keyed by
// (session_id, path).
type Session struct {
	ID            string `gorm:"primaryKey;size:36"`
	Status        string `gorm:"size:20;not null;index"`
	SpecJSON      string `gorm:"type:text;not null"`
	Frontend      string `gorm:"size:100"`
	Backend       string `gorm:"size:100"`
	Database      string `gorm:"size:100"`
	PublishOwner  string `gorm:"size:255"`
	PublishRepo   string `gorm:"size:255"`
	PublishBranch string `gorm:"size:255"`
	ManifestJSON  string `gorm:"type:text"`
	ErrorMessage  string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// Target returns the session's technology choices as a TargetConfig.
func (s *Session) Target() TargetConfig {
	return TargetConfig{Frontend: s.Frontend, Backend: s.Backend, Database: s.Database}
}

// Publish returns the session's publish target, or nil when none was requested.
func (s *Session) Publish() *PublishTarget {
	if s.PublishOwner == "" || s.PublishRepo == "" {
		return nil
	}
	return &PublishTarget{Owner: s.PublishOwner, Repo: s.PublishRepo, Branch: s.PublishBranch}
}

// SessionSnapshot is the decoded, caller-facing view of a session. Callers
// polling status receive the latest persisted snapshot; they never block on
// pipeline progress.
type SessionSnapshot struct {
	ID          string        `json:"id"`
	Status      SessionStatus `json:"status"`
	Target      TargetConfig  `json:"target"`
	Publish     *PublishTarget `json:"publish,omitempty"`
	Manifest    *Manifest     `json:"manifest,omitempty"`
	Results     []FileOutcome `json:"results"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}
