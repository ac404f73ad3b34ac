package models

import "time"

// Milestone is one planned delivery step inside a specification.
type Milestone struct {
	Name     string `json:"name"`
	Duration string `json:"duration,omitempty"`
}

// Specification is the structured project description a session generates
// from. It is the output shape of the intake flow: summary, categorized
// requirements and milestones.
type Specification struct {
	ProjectName               string      `json:"projectName"`
	ExecutiveSummary          string      `json:"executiveSummary"`
	FunctionalRequirements    []string    `json:"functionalRequirements"`
	NonFunctionalRequirements []string    `json:"nonFunctionalRequirements,omitempty"`
	Constraints               []string    `json:"constraints,omitempty"`
	Milestones                []Milestone `json:"milestones,omitempty"`
}

// Empty reports whether the specification carries no usable content.
func (s *Specification) Empty() bool {
	if s == nil {
		return true
	}
	return s.ExecutiveSummary == "" && len(s.FunctionalRequirements) == 0
}

// SpecificationRecord is a stored specification, addressable by reference ID
// from pipeline starts. Version increments when a project's specification is
// replaced.
type SpecificationRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	ProjectName string `gorm:"size:255;not null;index"`
	ContentJSON string `gorm:"type:text;not null"`
	Version     int    `gorm:"not null;default:1"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
