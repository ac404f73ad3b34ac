package pipeline

import (
	"embed"
	"fmt"
	"strings"

	"forgeline/internal/models"
)

// embeddedPrompts holds the built-in prompt templates so packaged executables
// can load them without needing access to the source tree.
//
//go:embed prompts/*.txt
var embeddedPrompts embed.FS

func promptTemplate(name string) string {
	data, err := embeddedPrompts.ReadFile("prompts/" + name)
	if err != nil {
		// The templates ship inside the binary; a missing one is a build defect.
		panic(fmt.Sprintf("missing embedded prompt %s: %v", name, err))
	}
	return string(data)
}

func writeSpecification(sb *strings.Builder, spec *models.Specification) {
	sb.WriteString("## Project Specification\n\n")
	if spec.ProjectName != "" {
		sb.WriteString(fmt.Sprintf("Project: %s\n", spec.ProjectName))
	}
	if spec.ExecutiveSummary != "" {
		sb.WriteString(fmt.Sprintf("Summary: %s\n", spec.ExecutiveSummary))
	}
	if len(spec.FunctionalRequirements) > 0 {
		sb.WriteString("\nFunctional requirements:\n")
		for _, req := range spec.FunctionalRequirements {
			sb.WriteString(fmt.Sprintf("- %s\n", req))
		}
	}
	if len(spec.NonFunctionalRequirements) > 0 {
		sb.WriteString("\nNon-functional requirements:\n")
		for _, req := range spec.NonFunctionalRequirements {
			sb.WriteString(fmt.Sprintf("- %s\n", req))
		}
	}
	if len(spec.Constraints) > 0 {
		sb.WriteString("\nConstraints:\n")
		for _, c := range spec.Constraints {
			sb.WriteString(fmt.Sprintf("- %s\n", c))
		}
	}
}

func writeTarget(sb *strings.Builder, target models.TargetConfig) {
	sb.WriteString("\n## Technology Choices\n\n")
	sb.WriteString(fmt.Sprintf("Frontend: %s\nBackend: %s\nDatabase: %s\n",
		target.Frontend, target.Backend, target.Database))
}

// buildManifestPrompt embeds the specification and technology choices into
// the manifest-planning template.
func buildManifestPrompt(spec *models.Specification, target models.TargetConfig) string {
	var sb strings.Builder
	sb.WriteString(promptTemplate("analyze_manifest.txt"))
	sb.WriteString("\n")
	writeSpecification(&sb, spec)
	writeTarget(&sb, target)
	return sb.String()
}

// buildGeneratePrompt embeds the specification, the manifest entry and the
// derived API/data-model descriptions into the file-generation template.
func buildGeneratePrompt(spec *models.Specification, target models.TargetConfig, manifest *models.Manifest, entry models.ManifestEntry) string {
	var sb strings.Builder
	sb.WriteString(promptTemplate("generate_file.txt"))
	sb.WriteString("\n")
	writeSpecification(&sb, spec)
	writeTarget(&sb, target)

	sb.WriteString("\n## File To Implement\n\n")
	sb.WriteString(fmt.Sprintf("Path: %s\nCategory: %s\nPurpose: %s\n", entry.Path, entry.Category, entry.Purpose))
	if len(entry.DependsOn) > 0 {
		sb.WriteString(fmt.Sprintf("Related files: %s\n", strings.Join(entry.DependsOn, ", ")))
	}

	if manifest != nil && len(manifest.Endpoints) > 0 {
		sb.WriteString("\n## API Endpoints\n\n")
		for _, ep := range manifest.Endpoints {
			sb.WriteString(fmt.Sprintf("- %s %s: %s\n", ep.Method, ep.Path, ep.Description))
		}
	}
	if manifest != nil && len(manifest.DataModels) > 0 {
		sb.WriteString("\n## Data Models\n\n")
		for _, dm := range manifest.DataModels {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", dm.Name, dm.Description))
			for _, field := range dm.Fields {
				sb.WriteString(fmt.Sprintf("  - %s\n", field))
			}
		}
	}
	return sb.String()
}

// buildReviewPrompt embeds the generated content into the static-analysis
// template.
func buildReviewPrompt(entry models.ManifestEntry, content string) string {
	var sb strings.Builder
	sb.WriteString(promptTemplate("review_file.txt"))
	sb.WriteString("\n## File Under Review\n\n")
	sb.WriteString(fmt.Sprintf("Path: %s\nPurpose: %s\n\n", entry.Path, entry.Purpose))
	sb.WriteString("```\n")
	sb.WriteString(content)
	sb.WriteString("\n```\n")
	return sb.String()
}

// buildFixPrompt embeds the original content and the issue list into the
// correction template.
func buildFixPrompt(entry models.ManifestEntry, content string, issues []models.AnalysisIssue) string {
	var sb strings.Builder
	sb.WriteString(promptTemplate("fix_file.txt"))
	sb.WriteString("\n## Issues\n\n")
	for _, issue := range issues {
		sb.WriteString(fmt.Sprintf("- [%s] %s: %s", issue.Severity, issue.Location, issue.Message))
		if issue.Suggestion != "" {
			sb.WriteString(fmt.Sprintf(" (suggestion: %s)", issue.Suggestion))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("\n## Original Content of %s\n\n", entry.Path))
	sb.WriteString("```\n")
	sb.WriteString(content)
	sb.WriteString("\n```\n")
	return sb.String()
}
