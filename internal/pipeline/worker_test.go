package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"forgeline/internal/models"
)

const cleanReview = `{"qualityScore": 95, "issues": [], "recommendations": []}`

const flaggedReview = `{
	"qualityScore": 60,
	"issues": [{"severity": "HIGH", "location": "line 3", "message": "sql injection", "suggestion": "use placeholders"}],
	"recommendations": ["parameterize queries"]
}`

func testEntry() models.ManifestEntry {
	return models.ManifestEntry{Path: "server/main.go", Category: models.CategoryBackend, Purpose: "entrypoint"}
}

func testSession() *models.Session {
	return &models.Session{ID: "session-1", Status: string(models.SessionGenerating)}
}

func publishingSession() *models.Session {
	s := testSession()
	s.PublishOwner = "acme"
	s.PublishRepo = "shop"
	s.PublishBranch = "main"
	return s
}

func respondByKind(responses map[string]string) func(context.Context, string, int, float32) (string, error) {
	return func(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
		if resp, ok := responses[promptKind(prompt)]; ok {
			return resp, nil
		}
		return "", fmt.Errorf("unexpected prompt kind %s", promptKind(prompt))
	}
}

func TestWorker_Run_CleanFile(t *testing.T) {
	completions := &completionMock{CompleteFunc: respondByKind(map[string]string{
		"generate": "package main\n",
		"review":   cleanReview,
	})}
	store := newStoreMock()
	publisher := &publisherMock{}
	worker := NewWorker(completions, store, publisher, 0, 0.2)

	outcome := worker.Run(context.Background(), testSession(), testSpec(), &models.Manifest{}, testEntry())

	assert.Equal(t, models.FileDone, outcome.State)
	assert.Equal(t, "package main\n", outcome.Content)
	assert.False(t, outcome.FixApplied)
	assert.Equal(t, 95, outcome.Analysis.QualityScore)
	assert.Equal(t, 0, completions.callsOf("fix"))
	assert.Equal(t, 0, publisher.callCount(), "no publish target configured")

	recorded, ok := store.lastOutcome("server/main.go")
	assert.True(t, ok)
	assert.Equal(t, models.FileDone, recorded.State)
}

func TestWorker_Run_IssueTriggersSingleFix(t *testing.T) {
	completions := &completionMock{CompleteFunc: respondByKind(map[string]string{
		"generate": "db.Query(\"SELECT * FROM users WHERE id = \" + id)",
		"review":   flaggedReview,
		"fix":      "db.Query(\"SELECT * FROM users WHERE id = ?\", id)",
	})}
	store := newStoreMock()
	worker := NewWorker(completions, store, &publisherMock{}, 8192, 0.2)

	outcome := worker.Run(context.Background(), testSession(), testSpec(), &models.Manifest{}, testEntry())

	assert.Equal(t, models.FileDone, outcome.State)
	assert.True(t, outcome.FixApplied)
	assert.Equal(t, "db.Query(\"SELECT * FROM users WHERE id = ?\", id)", outcome.Content)
	assert.Equal(t, 1, completions.callsOf("fix"))
	assert.Equal(t, 1, completions.callsOf("review"), "fixed content is not re-reviewed")
	// Severity is normalized even when the model shouts.
	assert.Equal(t, models.SeverityHigh, outcome.Analysis.Issues[0].Severity)
}

func TestWorker_Run_LowSeverityStillFixes(t *testing.T) {
	completions := &completionMock{CompleteFunc: respondByKind(map[string]string{
		"generate": "content",
		"review":   `{"qualityScore": 90, "issues": [{"severity": "low", "message": "nit"}]}`,
		"fix":      "polished content",
	})}
	store := newStoreMock()
	worker := NewWorker(completions, store, &publisherMock{}, 8192, 0.2)

	outcome := worker.Run(context.Background(), testSession(), testSpec(), &models.Manifest{}, testEntry())

	assert.True(t, outcome.FixApplied)
	assert.Equal(t, "polished content", outcome.Content)
}

func TestWorker_Run_AnalysisParseFailureFallsBack(t *testing.T) {
	completions := &completionMock{CompleteFunc: respondByKind(map[string]string{
		"generate": "package main\n",
		"review":   "the file looks mostly fine to me",
	})}
	store := newStoreMock()
	worker := NewWorker(completions, store, &publisherMock{}, 8192, 0.2)

	outcome := worker.Run(context.Background(), testSession(), testSpec(), &models.Manifest{}, testEntry())

	assert.Equal(t, models.FileDone, outcome.State)
	assert.Equal(t, fallbackQualityScore, outcome.Analysis.QualityScore)
	assert.Empty(t, outcome.Analysis.Issues)
	assert.False(t, outcome.FixApplied)
	assert.Equal(t, 0, completions.callsOf("fix"), "fallback report has no issues to fix")
}

func TestWorker_Run_AnalysisCallFailureFallsBack(t *testing.T) {
	completions := &completionMock{
		CompleteFunc: func(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
			if promptKind(prompt) == "generate" {
				return "package main\n", nil
			}
			return "", errors.New("upstream timeout")
		},
	}
	store := newStoreMock()
	worker := NewWorker(completions, store, &publisherMock{}, 8192, 0.2)

	outcome := worker.Run(context.Background(), testSession(), testSpec(), &models.Manifest{}, testEntry())

	assert.Equal(t, models.FileDone, outcome.State)
	assert.Equal(t, fallbackQualityScore, outcome.Analysis.QualityScore)
}

func TestWorker_Run_EmptyGeneration(t *testing.T) {
	completions := &completionMock{CompleteFunc: respondByKind(map[string]string{
		"generate": "```\n\n```",
	})}
	store := newStoreMock()
	worker := NewWorker(completions, store, &publisherMock{}, 8192, 0.2)

	outcome := worker.Run(context.Background(), testSession(), testSpec(), &models.Manifest{}, testEntry())

	assert.Equal(t, models.FileErrored, outcome.State)
	assert.Contains(t, outcome.Error, ErrEmptyGeneration.Error())
	assert.Equal(t, 0, completions.callsOf("review"))
}

func TestWorker_Run_GenerateFailure(t *testing.T) {
	completions := &completionMock{
		CompleteFunc: func(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
			return "", errors.New("overloaded")
		},
	}
	store := newStoreMock()
	worker := NewWorker(completions, store, &publisherMock{}, 8192, 0.2)

	outcome := worker.Run(context.Background(), testSession(), testSpec(), &models.Manifest{}, testEntry())

	assert.Equal(t, models.FileErrored, outcome.State)
	assert.Contains(t, outcome.Error, "overloaded")

	recorded, ok := store.lastOutcome("server/main.go")
	assert.True(t, ok)
	assert.Equal(t, models.FileErrored, recorded.State)
}

func TestWorker_Run_FixFailureKeepsOriginal(t *testing.T) {
	completions := &completionMock{
		CompleteFunc: func(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
			switch promptKind(prompt) {
			case "generate":
				return "original content", nil
			case "review":
				return flaggedReview, nil
			default:
				return "", errors.New("fix model unavailable")
			}
		},
	}
	store := newStoreMock()
	worker := NewWorker(completions, store, &publisherMock{}, 8192, 0.2)

	outcome := worker.Run(context.Background(), testSession(), testSpec(), &models.Manifest{}, testEntry())

	assert.Equal(t, models.FileDone, outcome.State, "a failed fix attempt is not fatal")
	assert.False(t, outcome.FixApplied)
	assert.Equal(t, "original content", outcome.Content)
}

func TestWorker_Run_PublishesWhenTargetSet(t *testing.T) {
	completions := &completionMock{CompleteFunc: respondByKind(map[string]string{
		"generate": "package main\n",
		"review":   cleanReview,
	})}
	store := newStoreMock()
	publisher := &publisherMock{
		PutFileFunc: func(ctx context.Context, target models.PublishTarget, path, content, message string) (*models.PublishRecord, error) {
			assert.Equal(t, "acme", target.Owner)
			assert.Equal(t, "shop", target.Repo)
			assert.Equal(t, "server/main.go", path)
			assert.Equal(t, "Add generated file server/main.go", message)
			return &models.PublishRecord{Revision: "deadbeef", URL: "https://github.com/acme/shop/blob/main/server/main.go"}, nil
		},
	}
	worker := NewWorker(completions, store, publisher, 8192, 0.2)

	outcome := worker.Run(context.Background(), publishingSession(), testSpec(), &models.Manifest{}, testEntry())

	assert.Equal(t, models.FileDone, outcome.State)
	assert.Equal(t, "deadbeef", outcome.PublishRecord.Revision)
	assert.Empty(t, outcome.PublishError)
}

func TestWorker_Run_PublishFailureIsAbsorbed(t *testing.T) {
	completions := &completionMock{CompleteFunc: respondByKind(map[string]string{
		"generate": "package main\n",
		"review":   cleanReview,
	})}
	store := newStoreMock()
	publisher := &publisherMock{
		PutFileFunc: func(ctx context.Context, target models.PublishTarget, path, content, message string) (*models.PublishRecord, error) {
			return nil, errors.New("remote rejected push")
		},
	}
	worker := NewWorker(completions, store, publisher, 8192, 0.2)

	outcome := worker.Run(context.Background(), publishingSession(), testSpec(), &models.Manifest{}, testEntry())

	assert.Equal(t, models.FileDone, outcome.State, "publish failures never flip the file to errored")
	assert.Nil(t, outcome.PublishRecord)
	assert.Contains(t, outcome.PublishError, "remote rejected push")

	recorded, _ := store.lastOutcome("server/main.go")
	assert.Equal(t, models.FileDone, recorded.State)
}

func TestWorker_Run_CancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	completions := &completionMock{
		CompleteFunc: func(c context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
			// Cancel after generation completes; the next stage gate stops the run.
			cancel()
			return "package main\n", nil
		},
	}
	store := newStoreMock()
	worker := NewWorker(completions, store, &publisherMock{}, 8192, 0.2)

	outcome := worker.Run(ctx, testSession(), testSpec(), &models.Manifest{}, testEntry())

	assert.Equal(t, models.FileGenerating, outcome.State)
	assert.Nil(t, outcome.Analysis)
	assert.Equal(t, 0, completions.callsOf("review"))
}

func TestNormalizeReport_ClampsAndCoerces(t *testing.T) {
	report := &models.StaticAnalysisReport{
		QualityScore: 150,
		Issues: []models.AnalysisIssue{
			{Severity: " Medium ", Message: "a"},
			{Severity: "catastrophic", Message: "b"},
		},
	}
	normalizeReport(report)

	assert.Equal(t, 100, report.QualityScore)
	assert.Equal(t, models.SeverityMedium, report.Issues[0].Severity)
	assert.Equal(t, models.SeverityMedium, report.Issues[1].Severity, "unknown severities default to medium")

	report = &models.StaticAnalysisReport{QualityScore: -5}
	normalizeReport(report)
	assert.Equal(t, 0, report.QualityScore)
}
