package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"forgeline/internal/models"
)

// defaultMaxWorkers bounds simultaneous per-file pipelines to limit load on
// the completion capability and the datastore.
const defaultMaxWorkers = 4

// Coordinator fans one worker out per manifest entry and fans the outcomes
// back in. It waits for every worker to settle; partial results are a valid,
// reportable outcome, so the first failure never short-circuits the rest.
type Coordinator struct {
	worker     *Worker
	maxWorkers int
}

func NewCoordinator(worker *Worker, maxWorkers int) *Coordinator {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &Coordinator{worker: worker, maxWorkers: maxWorkers}
}

// Run dispatches workers with bounded concurrency and aggregates outcomes
// keyed by path, returned in manifest order regardless of completion order.
// It fails only when every worker errored.
func (c *Coordinator) Run(ctx context.Context, session *models.Session, spec *models.Specification, manifest *models.Manifest) ([]models.FileOutcome, error) {
	if manifest.Len() == 0 {
		return nil, ErrEmptyManifest
	}

	var (
		mu     sync.Mutex
		byPath = make(map[string]models.FileOutcome, manifest.Len())
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.maxWorkers)
	for _, entry := range manifest.Entries {
		entry := entry
		eg.Go(func() error {
			outcome := c.worker.Run(egCtx, session, spec, manifest, entry)
			mu.Lock()
			byPath[entry.Path] = outcome
			mu.Unlock()
			// Worker failures are aggregated, not propagated: returning an
			// error here would cancel the siblings.
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generation interrupted: %w", err)
	}

	outcomes := make([]models.FileOutcome, 0, manifest.Len())
	errored := 0
	for _, entry := range manifest.Entries {
		outcome, ok := byPath[entry.Path]
		if !ok {
			// Should not happen: every dispatched worker reports an outcome.
			outcome = models.FileOutcome{
				Path:     entry.Path,
				Category: entry.Category,
				State:    models.FileErrored,
				Error:    "worker produced no outcome",
			}
		}
		if outcome.State == models.FileErrored {
			errored++
		}
		outcomes = append(outcomes, outcome)
	}

	if errored == len(outcomes) {
		return outcomes, fmt.Errorf("all %d files failed to generate", errored)
	}
	return outcomes, nil
}
