package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"collate/internal/catalog"
	"collate/internal/logging"
	"collate/internal/providers"
	"collate/internal/reconcile"
	"collate/internal/report"
)

// run is the job loop. It owns the store for the duration of the run;
// every write funnels through the reconciler's ledger gate.
func (c *Controller) run(ctx context.Context, token string, opts StartOptions) {
	start := time.Now()
	terminal := StateCompleted

	c.mu.Lock()
	emitter := c.emitter
	c.mu.Unlock()

	worklist, err := c.buildWorklist(ctx, opts.Force)
	if err != nil {
		c.logger.Error("worklist build failed", logging.Error(err))
		c.finalize(token, StateFailed, emitter, start)
		return
	}

	reconciler := reconcile.New(c.store, c.cfg, c.logger)
	pace := newPacer()
	total := len(worklist)
	progressInterval := c.cfg.ProgressMinInterval()
	var lastProgress time.Time

	for i, entity := range worklist {
		if err := c.checkpoint(ctx, token); err != nil {
			terminal = StateCancelled
			break
		}

		itemErr := c.processItem(ctx, token, reconciler, pace, entity, opts.Force, emitter)
		if itemErr != nil {
			if errors.Is(itemErr, ErrRunCancelled) {
				terminal = StateCancelled
				break
			}
			if errors.Is(itemErr, errStoreLost) {
				terminal = StateFailed
				break
			}
			// Per-item failures are isolated: record and move on.
			emitter.RecordFailure(report.Item{
				EntityID: entity.ID,
				Label:    entity.Title,
				Error:    itemErr.Error(),
			})
			c.logger.Warn("item failed",
				logging.FieldEntityID, entity.ID,
				logging.Error(itemErr),
			)
		}

		if opts.Progress != nil {
			now := time.Now()
			// Throttle noisy worklists; the final item always reports.
			if i+1 == total || now.Sub(lastProgress) >= progressInterval {
				lastProgress = now
				elapsed := now.Sub(start)
				progress := Progress{
					Current: i + 1,
					Total:   total,
					Label:   entity.Title,
					Elapsed: elapsed,
				}
				if total > i+1 {
					progress.ETA = elapsed / time.Duration(i+1) * time.Duration(total-i-1)
				}
				opts.Progress(progress)
			}
		}
	}

	if terminal == StateCompleted {
		if _, err := reconciler.PropagateAll(ctx); err != nil {
			c.logger.Warn("propagation pass failed", logging.Error(err))
		}
	}

	c.finalize(token, terminal, emitter, start)
}

// errStoreLost marks an unrecoverable store failure that aborts the run.
var errStoreLost = fmt.Errorf("run aborted: %w", catalog.ErrStore)

func (c *Controller) buildWorklist(ctx context.Context, force bool) ([]*catalog.Entity, error) {
	entities, err := c.store.ListWithExternalIDs(ctx)
	if err != nil {
		return nil, err
	}
	if force {
		return entities, nil
	}
	pending := entities[:0]
	for _, entity := range entities {
		if !entity.Enriched() {
			pending = append(pending, entity)
		}
	}
	return pending, nil
}

// processItem re-fetches one entity from every enabled provider it has an
// id at, in priority order, and reconciles each record. Provider calls
// are paced and checkpointed so pause latency stays bounded inside a
// single item.
func (c *Controller) processItem(
	ctx context.Context,
	token string,
	reconciler *reconcile.Reconciler,
	pace *pacer,
	entity *catalog.Entity,
	force bool,
	emitter *report.Emitter,
) error {
	var (
		changes      []reconcile.FieldChange
		lastProvider string
		changed      bool
	)

	for _, adapter := range c.registry.Ordered() {
		id, ok := entity.ExternalID(adapter.Name())
		if !ok {
			continue
		}
		if err := c.checkpoint(ctx, token); err != nil {
			return err
		}
		if err := pace.wait(ctx, adapter.Name(), c.cfg.ProviderDelay(adapter.Name())); err != nil {
			return ErrRunCancelled
		}

		record, err := c.fetchWithRetry(ctx, token, adapter, id)
		if err != nil {
			if errors.Is(err, ErrRunCancelled) {
				return err
			}
			return fmt.Errorf("%s: %w", adapter.Name(), err)
		}

		outcome, err := reconciler.Reconcile(ctx, record, force)
		if err != nil {
			if storeLost(ctx, c.store) {
				return errStoreLost
			}
			return fmt.Errorf("reconcile %s:%s: %w", adapter.Name(), id, err)
		}
		changes = append(changes, outcome.Changes...)
		if len(outcome.Changes) > 0 || outcome.Propagated > 0 {
			changed = true
		}
		lastProvider = adapter.Name()
	}

	if changed || !entity.Enriched() {
		if err := c.store.MarkEnriched(ctx, entity.ID, time.Now()); err != nil {
			if storeLost(ctx, c.store) {
				return errStoreLost
			}
			return fmt.Errorf("mark enriched: %w", err)
		}
	}

	if len(changes) > 0 {
		emitter.RecordUpdated(report.Item{
			EntityID: entity.ID,
			Label:    entity.Title,
			Provider: lastProvider,
			Changes:  changes,
		})
	} else {
		emitter.RecordSkipped()
	}
	return nil
}

// fetchWithRetry calls the adapter, retrying transient failures with the
// provider's Retry-After hint plus a margin when present, otherwise
// exponential backoff capped at the configured ceiling. Fatal and
// not-found errors surface immediately.
func (c *Controller) fetchWithRetry(ctx context.Context, token string, adapter providers.Adapter, id string) (*providers.Record, error) {
	maxRetries := c.cfg.Enrichment.MaxRetries
	margin := time.Duration(c.cfg.Enrichment.RetryMarginSeconds) * time.Second
	ceiling := time.Duration(c.cfg.Enrichment.BackoffCeilingSeconds) * time.Second

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.checkpoint(ctx, token); err != nil {
			return nil, err
		}
		if attempt > 0 {
			delay := time.Duration(1<<attempt) * time.Second
			if hint, ok := providers.RetryAfterHint(lastErr); ok {
				delay = hint + margin
			}
			if delay > ceiling {
				delay = ceiling
			}
			if err := SleepWithContext(ctx, delay); err != nil {
				return nil, ErrRunCancelled
			}
			c.logger.Debug("retrying provider call",
				logging.FieldProvider, adapter.Name(),
				"attempt", attempt,
				logging.Duration("delay", delay),
			)
		}
		record, err := adapter.FetchByID(ctx, id)
		if err == nil {
			return record, nil
		}
		if ctx.Err() != nil {
			return nil, ErrRunCancelled
		}
		lastErr = err
		if !providers.IsTransient(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// storeLost distinguishes an unrecoverable store failure from an
// item-scoped write error.
func storeLost(ctx context.Context, store *catalog.Store) bool {
	pingCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	return store.Ping(pingCtx) != nil
}

// finalize flushes the report artifact, persists the run record, and
// resets the controller.
func (c *Controller) finalize(token string, terminal State, emitter *report.Emitter, start time.Time) {
	finished := time.Now()
	reportPath, err := emitter.Flush(string(terminal), finished)
	if err != nil {
		c.logger.Error("report flush failed", logging.Error(err))
	}

	summary := emitter.Summary()
	record := catalog.RunRecord{
		Token:      token,
		State:      string(terminal),
		StartedAt:  start,
		FinishedAt: &finished,
		Processed:  summary.Processed,
		Updated:    summary.Created + summary.Updated,
		Skipped:    summary.Skipped,
		Failed:     summary.Failed,
		ReportPath: reportPath,
	}
	if err := c.store.RecordRun(context.Background(), record); err != nil {
		c.logger.Error("run record write failed", logging.Error(err))
	}

	c.finish(token, terminal, record)
}
