package pipeline

import (
	"context"
	"fmt"
	"strings"

	"forgeline/internal/llm/client"
	"forgeline/internal/models"
)

// Analyzer turns a specification into a file manifest plus derived API and
// data-model descriptions, using a single completion call.
type Analyzer struct {
	completions client.CompletionClient
	maxTokens   int
	temperature float32
}

func NewAnalyzer(completions client.CompletionClient, maxTokens int, temperature float32) *Analyzer {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Analyzer{completions: completions, maxTokens: maxTokens, temperature: temperature}
}

// Analyze plans the session's files. The response is parsed as JSON with
// balanced-fragment recovery; if both parses fail the stage fails with
// ErrManifestUnparseable. A manifest without a single file is ErrEmptyManifest.
func (a *Analyzer) Analyze(ctx context.Context, spec *models.Specification, target models.TargetConfig) (*models.Manifest, error) {
	prompt := buildManifestPrompt(spec, target)

	raw, err := a.completions.Complete(ctx, prompt, a.maxTokens, a.temperature)
	if err != nil {
		return nil, fmt.Errorf("manifest analysis call failed: %w", err)
	}

	var manifest models.Manifest
	if err := decodeJSONResponse(raw, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestUnparseable, err)
	}

	entries, err := normalizeEntries(manifest.Entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestUnparseable, err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyManifest
	}
	manifest.Entries = entries
	return &manifest, nil
}

// normalizeEntries trims paths, lowercases categories and rejects duplicates.
func normalizeEntries(entries []models.ManifestEntry) ([]models.ManifestEntry, error) {
	seen := make(map[string]bool, len(entries))
	normalized := make([]models.ManifestEntry, 0, len(entries))
	for _, entry := range entries {
		entry.Path = strings.TrimSpace(entry.Path)
		if entry.Path == "" {
			continue
		}
		if seen[entry.Path] {
			return nil, fmt.Errorf("duplicate manifest path %q", entry.Path)
		}
		seen[entry.Path] = true

		entry.Category = models.FileCategory(strings.ToLower(strings.TrimSpace(string(entry.Category))))
		if !models.ValidCategory(entry.Category) {
			return nil, fmt.Errorf("unknown category %q for %q", entry.Category, entry.Path)
		}
		normalized = append(normalized, entry)
	}
	return normalized, nil
}
