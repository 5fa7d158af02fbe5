package enrich

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"collate/internal/catalog"
	"collate/internal/config"
	"collate/internal/logging"
	"collate/internal/providers"
	"collate/internal/report"
)

// ErrRunCancelled unwinds the job loop when the active run's cancel flag
// is observed at a checkpoint.
var ErrRunCancelled = errors.New("run cancelled")

// Progress is delivered to the progress callback once per item.
type Progress struct {
	Current int
	Total   int
	Label   string
	Elapsed time.Duration
	ETA     time.Duration
}

// ProgressFunc receives per-item progress. Called from the job goroutine.
type ProgressFunc func(Progress)

// StartOptions tune one run.
type StartOptions struct {
	// Force re-enriches every entity, bypassing field protection and the
	// enriched-at filter.
	Force bool

	Progress ProgressFunc
}

// StartResult reports whether a run was started. A second start while a
// run is active is answered, not errored.
type StartResult struct {
	Token          string
	AlreadyRunning bool
}

// Status is a point-in-time view of the controller.
type Status struct {
	State   State
	Token   string
	Summary report.Summary
}

// Controller owns the enrichment job lifecycle:
// Idle -> Running <-> Paused -> {Completed | Cancelled | Failed} -> Idle.
// All run state lives here, guarded by one mutex; pause/resume ride a
// condition variable.
type Controller struct {
	cfg      *config.Config
	store    *catalog.Store
	registry *providers.Registry
	logger   *slog.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	state     State
	lastState State
	token     string
	paused    bool
	cancelled bool
	runCancel context.CancelFunc
	done      chan struct{}
	emitter   *report.Emitter
	lastRun   *catalog.RunRecord
}

// New constructs an idle controller.
func New(cfg *config.Config, store *catalog.Store, registry *providers.Registry, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Controller{
		cfg:      cfg,
		store:    store,
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "enrich"),
		state:    StateIdle,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Start launches a run in the background. While a run is active a second
// Start answers AlreadyRunning instead of erroring.
func (c *Controller) Start(ctx context.Context, opts StartOptions) (StartResult, error) {
	c.mu.Lock()
	if c.state.Active() {
		token := c.token
		c.mu.Unlock()
		return StartResult{Token: token, AlreadyRunning: true}, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	token := uuid.NewString()
	c.token = token
	c.state = StateRunning
	c.paused = false
	c.cancelled = false
	c.runCancel = cancel
	c.done = make(chan struct{})
	c.emitter = report.NewEmitter(c.cfg.ReportsDir(), token, time.Now())
	done := c.done
	c.mu.Unlock()

	c.logger.Info("run starting", logging.FieldRunToken, token, "force", opts.Force)

	go func() {
		defer close(done)
		defer cancel()
		c.run(runCtx, token, opts)
	}()

	return StartResult{Token: token}, nil
}

// Run starts a run and blocks until it finishes, for CLI use.
func (c *Controller) Run(ctx context.Context, opts StartOptions) (StartResult, error) {
	result, err := c.Start(ctx, opts)
	if err != nil || result.AlreadyRunning {
		return result, err
	}
	c.Wait()
	return result, nil
}

// Wait blocks until the current run finishes. Returns immediately when no
// run was ever started.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Pause asks the active run to hold at its next checkpoint. Stale tokens
// and inactive states are no-ops returning false.
func (c *Controller) Pause(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token || c.state != StateRunning {
		return false
	}
	c.paused = true
	c.state = StatePaused
	c.logger.Info("run paused", logging.FieldRunToken, token)
	return true
}

// Resume releases a paused run.
func (c *Controller) Resume(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token || c.state != StatePaused {
		return false
	}
	c.paused = false
	c.state = StateRunning
	c.cond.Broadcast()
	c.logger.Info("run resumed", logging.FieldRunToken, token)
	return true
}

// Cancel asks the active run to unwind at its next checkpoint. A cancel
// carrying a finished run's token is a no-op returning false.
func (c *Controller) Cancel(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token || !c.state.Active() {
		return false
	}
	c.cancelled = true
	c.paused = false
	if c.runCancel != nil {
		c.runCancel()
	}
	c.cond.Broadcast()
	c.logger.Info("run cancel requested", logging.FieldRunToken, token)
	return true
}

// Status reports the controller's current state. After a run finishes the
// state reads Idle; LastRun carries the terminal outcome.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := Status{State: c.state, Token: c.token}
	if c.emitter != nil {
		status.Summary = c.emitter.Summary()
	}
	return status
}

// LastRun returns the most recent terminal run record, or nil.
func (c *Controller) LastRun() *catalog.RunRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRun == nil {
		return nil
	}
	record := *c.lastRun
	return &record
}

// checkpoint is the cooperative suspension point: it blocks while paused
// and reports cancellation. Called between items, between provider calls,
// and before retry sleeps.
func (c *Controller) checkpoint(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.paused && !c.cancelled && token == c.token {
		c.cond.Wait()
	}
	if c.cancelled || ctx.Err() != nil {
		return ErrRunCancelled
	}
	return nil
}

// finish records the terminal state and resets the controller to Idle so
// a new run may start. The token is invalidated here, which is what makes
// stale control signals no-ops.
func (c *Controller) finish(token string, terminal State, record catalog.RunRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token {
		return
	}
	c.lastState = terminal
	c.lastRun = &record
	c.state = StateIdle
	c.token = ""
	c.paused = false
	c.cancelled = false
	c.runCancel = nil
	c.logger.Info("run finished",
		logging.FieldRunToken, token,
		"state", string(terminal),
		"processed", record.Processed,
		"updated", record.Updated,
		"failed", record.Failed,
	)
}
