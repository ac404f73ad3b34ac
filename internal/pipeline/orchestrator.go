package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"forgeline/internal/events"
	"forgeline/internal/models"
	"forgeline/internal/repositories"
	"forgeline/internal/services"
)

// StartRequest carries everything needed to begin a generation run. Exactly
// one of SpecificationRef or Specification must be provided; an inline
// specification wins when both are set.
type StartRequest struct {
	SpecificationRef string
	Specification    *models.Specification
	Target           models.TargetConfig
	Publish          *models.PublishTarget
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Orchestrator owns the session lifecycle: pending -> analyzing ->
// generating -> aggregating -> completed, with any unrecoverable error
// jumping straight to failed. Every transition is persisted before the next
// stage begins.
type Orchestrator struct {
	store       services.SessionStore
	specs       services.SpecificationService
	analyzer    *Analyzer
	coordinator *Coordinator

	mu   sync.Mutex
	runs map[string]*run
}

func NewOrchestrator(store services.SessionStore, specs services.SpecificationService, analyzer *Analyzer, coordinator *Coordinator) *Orchestrator {
	return &Orchestrator{
		store:       store,
		specs:       specs,
		analyzer:    analyzer,
		coordinator: coordinator,
		runs:        make(map[string]*run),
	}
}

// Start resolves the specification, persists the initial session record and
// launches the pipeline in the background. The session id is returned once
// the pending state is durable, so an immediate Status call observes at
// least pending. A reference that does not resolve fails with
// ErrSpecificationMissing before any session record is created.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (string, error) {
	spec := req.Specification
	if spec == nil {
		ref := strings.TrimSpace(req.SpecificationRef)
		if ref == "" {
			return "", ErrSpecificationMissing
		}
		resolved, err := o.specs.Resolve(ref)
		if err != nil {
			return "", fmt.Errorf("resolve specification %s: %w", ref, err)
		}
		if resolved == nil {
			return "", fmt.Errorf("specification %s not found: %w", ref, ErrSpecificationMissing)
		}
		spec = resolved
	}
	if spec.Empty() {
		return "", ErrSpecificationMissing
	}

	session, err := o.store.CreateSession(spec, req.Target, req.Publish)
	if err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(events.WithSession(context.WithoutCancel(ctx), session.ID))
	r := &run{cancel: cancel, done: make(chan struct{})}
	o.mu.Lock()
	o.runs[session.ID] = r
	o.mu.Unlock()

	o.emitStatus(runCtx, session.ID, models.SessionPending, "session created")
	go o.execute(runCtx, r, session, spec)

	return session.ID, nil
}

// Status returns the latest persisted snapshot. It never blocks on pipeline
// progress.
func (o *Orchestrator) Status(sessionID string) (*models.SessionSnapshot, error) {
	session, err := o.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return o.store.Snapshot(sessionID)
}

// Cancel marks the session failed and signals in-flight workers. Workers
// observe the cancellation before their next stage transition; a completion
// call already in flight is allowed to finish.
func (o *Orchestrator) Cancel(sessionID string) error {
	if err := o.store.Fail(sessionID, "session cancelled"); err != nil {
		return err
	}
	o.mu.Lock()
	r := o.runs[sessionID]
	o.mu.Unlock()
	if r != nil {
		r.cancel()
	}
	o.emitStatus(context.Background(), sessionID, models.SessionFailed, "session cancelled")
	return nil
}

// Await blocks until the session's pipeline goroutine has settled, then
// returns the final snapshot. Sessions that are not running return their
// stored snapshot immediately.
func (o *Orchestrator) Await(sessionID string) (*models.SessionSnapshot, error) {
	o.mu.Lock()
	r := o.runs[sessionID]
	o.mu.Unlock()
	if r != nil {
		<-r.done
	}
	return o.Status(sessionID)
}

func (o *Orchestrator) execute(ctx context.Context, r *run, session *models.Session, spec *models.Specification) {
	defer func() {
		close(r.done)
		o.mu.Lock()
		delete(o.runs, session.ID)
		o.mu.Unlock()
	}()

	if !o.transition(ctx, session.ID, models.SessionPending, models.SessionAnalyzing, "analyzing specification") {
		return
	}

	manifest, err := o.analyzer.Analyze(ctx, spec, session.Target())
	if err != nil {
		o.failSession(ctx, session.ID, fmt.Errorf("manifest analysis: %w", err))
		return
	}
	if err := o.store.SetManifest(session.ID, manifest); err != nil {
		o.failSession(ctx, session.ID, fmt.Errorf("persist manifest: %w", err))
		return
	}

	if !o.transition(ctx, session.ID, models.SessionAnalyzing, models.SessionGenerating,
		fmt.Sprintf("generating %d files", manifest.Len())) {
		return
	}

	outcomes, err := o.coordinator.Run(ctx, session, spec, manifest)
	if err != nil {
		o.failSession(ctx, session.ID, fmt.Errorf("generation: %w", err))
		return
	}

	if !o.transition(ctx, session.ID, models.SessionGenerating, models.SessionAggregating, "aggregating results") {
		return
	}

	if err := o.store.Complete(session.ID); err != nil {
		o.failSession(ctx, session.ID, fmt.Errorf("finalize session: %w", err))
		return
	}
	o.emitStatus(ctx, session.ID, models.SessionCompleted, summarizeOutcomes(outcomes))
}

// transition persists one status step. A status conflict means the session
// was failed out from under the run (e.g. cancelled); the run stops quietly.
func (o *Orchestrator) transition(ctx context.Context, sessionID string, from, to models.SessionStatus, summary string) bool {
	if err := o.store.Transition(sessionID, from, to); err != nil {
		if errors.Is(err, repositories.ErrStatusConflict) {
			log.Printf("pipeline: session %s no longer %s, stopping run", sessionID, from)
			return false
		}
		o.failSession(ctx, sessionID, fmt.Errorf("transition to %s: %w", to, err))
		return false
	}
	o.emitStatus(ctx, sessionID, to, summary)
	return true
}

func (o *Orchestrator) failSession(ctx context.Context, sessionID string, err error) {
	log.Printf("pipeline: session %s failed: %v", sessionID, err)
	if storeErr := o.store.Fail(sessionID, err.Error()); storeErr != nil {
		log.Printf("pipeline: failed to record failure for session %s: %v", sessionID, storeErr)
	}
	o.emitStatus(ctx, sessionID, models.SessionFailed, err.Error())
}

func (o *Orchestrator) emitStatus(ctx context.Context, sessionID string, status models.SessionStatus, summary string) {
	events.Emit(ctx, events.SessionStatusEvent, events.NewStatus(sessionID, string(status), summary))
}

func summarizeOutcomes(outcomes []models.FileOutcome) string {
	var errored, fixed, published int
	for _, outcome := range outcomes {
		if outcome.State == models.FileErrored {
			errored++
		}
		if outcome.FixApplied {
			fixed++
		}
		if outcome.PublishRecord != nil {
			published++
		}
	}
	return fmt.Sprintf("completed: %d files, %d errored, %d fixed, %d published",
		len(outcomes), errored, fixed, published)
}
