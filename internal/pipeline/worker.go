package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"forgeline/internal/events"
	"forgeline/internal/llm/client"
	"forgeline/internal/models"
	"forgeline/internal/publish"
	"forgeline/internal/services"
)

// fallbackQualityScore is used when the review response cannot be parsed.
const fallbackQualityScore = 70

// Worker runs the per-file pipeline: generate, analyze, conditionally fix,
// persist, conditionally publish. Stages run sequentially; every state
// transition is written to the session store before the next stage starts.
type Worker struct {
	completions client.CompletionClient
	store       services.SessionStore
	publisher   publish.Publisher
	maxTokens   int
	temperature float32
}

func NewWorker(completions client.CompletionClient, store services.SessionStore, publisher publish.Publisher, maxTokens int, temperature float32) *Worker {
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &Worker{
		completions: completions,
		store:       store,
		publisher:   publisher,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Run drives one manifest entry to a terminal state and returns the outcome.
// A cancelled context is observed between stages: the worker stops without
// persisting anything past its last completed stage. Publish failures are
// absorbed into the outcome, never escalated to errored.
func (w *Worker) Run(ctx context.Context, session *models.Session, spec *models.Specification, manifest *models.Manifest, entry models.ManifestEntry) models.FileOutcome {
	outcome := models.FileOutcome{
		Path:     entry.Path,
		Category: entry.Category,
		State:    models.FileGenerating,
	}
	w.record(ctx, session.ID, &outcome)

	content, err := w.generate(ctx, spec, session.Target(), manifest, entry)
	if err != nil {
		return w.errored(ctx, session.ID, outcome, fmt.Errorf("generate %s: %w", entry.Path, err))
	}
	outcome.Content = content

	if ctx.Err() != nil {
		return outcome
	}
	outcome.State = models.FileAnalyzing
	w.record(ctx, session.ID, &outcome)
	outcome.Analysis = w.analyze(ctx, entry, content)

	// A single fix attempt, triggered by any issue regardless of severity.
	if outcome.Analysis.HasIssues() {
		if ctx.Err() != nil {
			return outcome
		}
		outcome.State = models.FileFixing
		w.record(ctx, session.ID, &outcome)

		fixed, err := w.fix(ctx, entry, outcome.Content, outcome.Analysis.Issues)
		if err != nil {
			// The original content stands; the failed attempt is reported, not fatal.
			emitFileWarn(ctx, session.ID, entry.Path, fmt.Sprintf("fix attempt failed: %v", err))
		} else {
			outcome.Content = fixed
			outcome.FixApplied = true
		}
	}

	if ctx.Err() != nil {
		return outcome
	}
	outcome.State = models.FilePersisting
	if err := w.store.UpsertFileResult(session.ID, &outcome); err != nil {
		return w.errored(ctx, session.ID, outcome, fmt.Errorf("persist %s: %w", entry.Path, err))
	}

	if target := session.Publish(); target != nil {
		if ctx.Err() != nil {
			return outcome
		}
		outcome.State = models.FilePublishing
		w.record(ctx, session.ID, &outcome)

		record, err := w.publisher.PutFile(ctx, *target, entry.Path, outcome.Content, commitMessage(entry.Path))
		if err != nil {
			outcome.PublishError = err.Error()
			emitFileWarn(ctx, session.ID, entry.Path, fmt.Sprintf("publish failed: %v", err))
		} else {
			outcome.PublishRecord = record
		}
	}

	outcome.State = models.FileDone
	w.record(ctx, session.ID, &outcome)
	return outcome
}

func (w *Worker) generate(ctx context.Context, spec *models.Specification, target models.TargetConfig, manifest *models.Manifest, entry models.ManifestEntry) (string, error) {
	prompt := buildGeneratePrompt(spec, target, manifest, entry)
	raw, err := w.completions.Complete(ctx, prompt, w.maxTokens, w.temperature)
	if err != nil {
		return "", err
	}
	content := stripCodeFences(raw)
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyGeneration
	}
	return content, nil
}

// analyze never fails the worker: a malformed or unavailable review falls
// back to a neutral report so the pipeline stays resilient.
func (w *Worker) analyze(ctx context.Context, entry models.ManifestEntry, content string) *models.StaticAnalysisReport {
	prompt := buildReviewPrompt(entry, content)
	raw, err := w.completions.Complete(ctx, prompt, w.maxTokens, w.temperature)
	if err != nil {
		return fallbackReport(fmt.Sprintf("analysis call failed: %v", err))
	}

	var report models.StaticAnalysisReport
	if err := decodeJSONResponse(raw, &report); err != nil {
		return fallbackReport(fmt.Sprintf("analysis response unparseable: %v", err))
	}
	normalizeReport(&report)
	return &report
}

func (w *Worker) fix(ctx context.Context, entry models.ManifestEntry, content string, issues []models.AnalysisIssue) (string, error) {
	prompt := buildFixPrompt(entry, content, issues)
	raw, err := w.completions.Complete(ctx, prompt, w.maxTokens, w.temperature)
	if err != nil {
		return "", err
	}
	fixed := stripCodeFences(raw)
	if strings.TrimSpace(fixed) == "" {
		return "", ErrEmptyGeneration
	}
	return fixed, nil
}

func (w *Worker) errored(ctx context.Context, sessionID string, outcome models.FileOutcome, err error) models.FileOutcome {
	outcome.State = models.FileErrored
	outcome.Error = err.Error()
	w.record(ctx, sessionID, &outcome)
	emitFileWarn(ctx, sessionID, outcome.Path, err.Error())
	return outcome
}

// record is the write-ahead of per-file state. Failures on intermediate
// transitions are logged and tolerated; the persisting stage goes through
// UpsertFileResult directly and handles its error.
func (w *Worker) record(ctx context.Context, sessionID string, outcome *models.FileOutcome) {
	if err := w.store.UpsertFileResult(sessionID, outcome); err != nil {
		log.Printf("pipeline: failed to record %s state for %s: %v", outcome.State, outcome.Path, err)
		return
	}
	evt := events.NewInfo(fmt.Sprintf("%s -> %s", outcome.Path, outcome.State))
	evt.SessionID = sessionID
	events.Emit(ctx, events.FileProgressEvent, evt)
}

func emitFileWarn(ctx context.Context, sessionID, path, message string) {
	evt := events.NewWarn(fmt.Sprintf("%s: %s", path, message))
	evt.SessionID = sessionID
	events.Emit(ctx, events.FileProgressEvent, evt)
}

func fallbackReport(note string) *models.StaticAnalysisReport {
	return &models.StaticAnalysisReport{
		QualityScore:    fallbackQualityScore,
		Issues:          []models.AnalysisIssue{},
		Recommendations: []string{note},
	}
}

// normalizeReport clamps the score and lowercases severities so downstream
// decisions see a consistent shape.
func normalizeReport(report *models.StaticAnalysisReport) {
	if report.QualityScore < 0 {
		report.QualityScore = 0
	}
	if report.QualityScore > 100 {
		report.QualityScore = 100
	}
	for i := range report.Issues {
		severity := models.IssueSeverity(strings.ToLower(strings.TrimSpace(string(report.Issues[i].Severity))))
		switch severity {
		case models.SeverityHigh, models.SeverityMedium, models.SeverityLow:
			report.Issues[i].Severity = severity
		default:
			report.Issues[i].Severity = models.SeverityMedium
		}
	}
}

// commitMessage derives a deterministic source-control message from the path.
func commitMessage(path string) string {
	return fmt.Sprintf("Add generated file %s", path)
}
