package models

// FileCategory classifies a planned file by the slice of the stack it belongs to.
type FileCategory string

const (
	CategoryFrontend FileCategory = "frontend"
	CategoryBackend  FileCategory = "backend"
	CategoryConfig   FileCategory = "config"
	CategoryDatabase FileCategory = "database"
)

// ValidCategory reports whether c is one of the known file categories.
func ValidCategory(c FileCategory) bool {
	switch c {
	case CategoryFrontend, CategoryBackend, CategoryConfig, CategoryDatabase:
		return true
	}
	return false
}

// ManifestEntry is one planned file. DependsOn carries ordering hints for
// documentation purposes only; the pipeline does not enforce a dependency
// graph between entries.
type ManifestEntry struct {
	Path      string       `json:"path"`
	Category  FileCategory `json:"category"`
	Purpose   string       `json:"purpose"`
	DependsOn []string     `json:"dependsOn,omitempty"`
}

// APIEndpoint describes one planned HTTP endpoint derived from the specification.
type APIEndpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// DataModel describes one planned data entity derived from the specification.
type DataModel struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Fields      []string `json:"fields,omitempty"`
}

// Manifest is the planned set of files to generate for a session, plus the
// derived API and data-model descriptions that seed per-file generation.
type Manifest struct {
	Entries    []ManifestEntry `json:"entries"`
	Endpoints  []APIEndpoint   `json:"endpoints,omitempty"`
	DataModels []DataModel     `json:"dataModels,omitempty"`
}

// Len returns the number of planned files across all categories.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}
