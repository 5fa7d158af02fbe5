package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"collate/internal/catalog"
	"collate/internal/config"
	"collate/internal/logging"
	"collate/internal/matching"
	"collate/internal/providers"
)

// MatchKind names how a record found its entity.
type MatchKind string

const (
	MatchIdentity MatchKind = "identity"
	MatchExact    MatchKind = "exact"
	MatchFuzzy    MatchKind = "fuzzy"
	MatchNone     MatchKind = "none"
)

// Outcome is the result of reconciling one record.
type Outcome struct {
	Entity     *catalog.Entity
	Created    bool
	Match      MatchKind
	Score      int
	Changes    []FieldChange
	Signal     bool
	Propagated int
}

// Reconciler drives the match, merge, persist, propagate sequence for
// incoming provider records. It is single-writer: one reconciler at a
// time owns the store.
type Reconciler struct {
	store      *catalog.Store
	cfg        *config.Config
	merger     *Merger
	propagator *Propagator
	logger     *slog.Logger

	matcher *matching.Matcher
}

// New builds a reconciler over the store.
func New(store *catalog.Store, cfg *config.Config, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "reconcile")
	return &Reconciler{
		store:      store,
		cfg:        cfg,
		merger:     NewMerger(cfg),
		propagator: NewPropagator(store, logger),
		logger:     logger,
	}
}

// Reconcile folds one record into the catalog and returns what happened.
// force bypasses field protection, for explicit operator re-enrichment.
func (r *Reconciler) Reconcile(ctx context.Context, record *providers.Record, force bool) (Outcome, error) {
	outcome := Outcome{Match: MatchNone}

	entity, err := r.store.FindByExternalID(ctx, record.Provider, record.ID)
	if err != nil {
		return outcome, fmt.Errorf("identity lookup: %w", err)
	}
	if entity != nil {
		outcome.Match = MatchIdentity
		outcome.Score = 100
	} else {
		matcher, err := r.titleMatcher(ctx)
		if err != nil {
			return outcome, err
		}
		titles := append([]string{record.PrimaryTitle()}, record.AltTitles...)
		if candidate, ok := matcher.MatchAny(titles, record.MediaType); ok {
			entity, err = r.store.GetByID(ctx, candidate.EntityID)
			if err != nil {
				return outcome, fmt.Errorf("load matched entity: %w", err)
			}
			if entity != nil {
				outcome.Score = candidate.Score
				if candidate.Exact {
					outcome.Match = MatchExact
				} else {
					outcome.Match = MatchFuzzy
				}
			}
		}
	}

	var result MergeResult
	if entity == nil {
		entity, result = r.merger.Create(record)
		entity, err = r.store.Insert(ctx, entity)
		if err != nil {
			return outcome, fmt.Errorf("insert entity: %w", err)
		}
		r.invalidateMatcher()
		r.logger.Info("created entity",
			logging.FieldEntityID, entity.ID,
			logging.FieldProvider, record.Provider,
			"title", entity.Title,
		)
	} else {
		result = r.merger.Merge(entity, record, force)
		if result.Changed() {
			if err := r.store.Save(ctx, entity); err != nil {
				return outcome, fmt.Errorf("save entity: %w", err)
			}
			r.invalidateMatcher()
		}
	}

	outcome.Entity = entity
	outcome.Created = result.Created
	outcome.Changes = result.Changes
	outcome.Signal = result.Signal

	propagated, err := r.propagator.Propagate(ctx, entity)
	outcome.Propagated = propagated
	if err != nil {
		return outcome, err
	}
	return outcome, nil
}

// PropagateAll exposes the batch propagation pass run after a full sync.
func (r *Reconciler) PropagateAll(ctx context.Context) (int, error) {
	return r.propagator.PropagateAll(ctx)
}

func (r *Reconciler) titleMatcher(ctx context.Context) (*matching.Matcher, error) {
	if r.matcher != nil {
		return r.matcher, nil
	}
	entries, err := r.store.TitleEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load title index: %w", err)
	}
	counts, err := r.store.ExternalIDCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load id counts: %w", err)
	}
	r.matcher = matching.New(r.cfg.Matching.FuzzyThreshold, entries, counts)
	return r.matcher, nil
}

// invalidateMatcher drops the cached title index after any write that can
// add titles or external ids.
func (r *Reconciler) invalidateMatcher() {
	r.matcher = nil
}
