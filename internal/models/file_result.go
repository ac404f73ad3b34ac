package models

import "time"

// FileState is the per-file pipeline stage. States advance monotonically;
// the only loop is analyzing -> fixing -> persisting, executed at most once.
type FileState string

const (
	FileGenerating FileState = "generating"
	FileAnalyzing  FileState = "analyzing"
	FileFixing     FileState = "fixing"
	FilePersisting FileState = "persisting"
	FilePublishing FileState = "publishing"
	FileDone       FileState = "done"
	FileErrored    FileState = "errored"
)

// Terminal reports whether s ends the per-file pipeline.
func (s FileState) Terminal() bool {
	return s == FileDone || s == FileErrored
}

// PublishRecord captures a successful write to the source-control host.
type PublishRecord struct {
	Revision    string    `json:"revision"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

// FileResult is the durable per-file outcome, keyed by (session_id, path).
// Workers write disjoint keys, so no cross-worker lock is needed.
type FileResult struct {
	ID              uint   `gorm:"primaryKey"`
	SessionID       string `gorm:"size:36;not null;index:idx_result_session_path,unique"`
	Path            string `gorm:"size:512;not null;index:idx_result_session_path,unique"`
	Category        string `gorm:"size:20;not null"`
	Content         string `gorm:"type:text"`
	AnalysisJSON    string `gorm:"type:text"`
	FixApplied      bool   `gorm:"not null;default:false"`
	State           string `gorm:"size:20;not null"`
	ErrorMessage    string `gorm:"type:text"`
	PublishRevision string `gorm:"size:64"`
	PublishURL      string `gorm:"size:1024"`
	PublishedAt     *time.Time
	PublishError    string `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FileOutcome is the decoded, caller-facing view of one FileResult. Each stage
// outcome is exposed individually rather than collapsed into a single
// pass/fail bit.
type FileOutcome struct {
	Path          string                `json:"path"`
	Category      FileCategory          `json:"category"`
	Content       string                `json:"content,omitempty"`
	Analysis      *StaticAnalysisReport `json:"analysis,omitempty"`
	FixApplied    bool                  `json:"fixApplied"`
	State         FileState             `json:"state"`
	Error         string                `json:"error,omitempty"`
	PublishRecord *PublishRecord        `json:"publishRecord,omitempty"`
	PublishError  string                `json:"publishError,omitempty"`
}
