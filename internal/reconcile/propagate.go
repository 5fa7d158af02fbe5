package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"collate/internal/catalog"
	"collate/internal/logging"
)

// Propagator back-fills inverse relation pointers: when entity A says
// "sequel = B", B learns "prequel = A" if that slot is empty. Filling
// only nulls means a single pass reaches fixpoint and no cycle is ever
// created.
type Propagator struct {
	store  *catalog.Store
	logger *slog.Logger
}

// NewPropagator builds a propagator over the store.
func NewPropagator(store *catalog.Store, logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Propagator{store: store, logger: logger}
}

// Propagate back-fills inverses for every populated relation on the
// entity and returns how many targets were updated.
func (p *Propagator) Propagate(ctx context.Context, entity *catalog.Entity) (int, error) {
	applied := 0
	for kind, ref := range entity.Relations {
		if ref.IsZero() {
			continue
		}
		inverse, ok := kind.Inverse()
		if !ok {
			continue
		}
		target, err := p.store.FindByExternalID(ctx, ref.Provider, ref.ID)
		if err != nil {
			return applied, fmt.Errorf("resolve relation target %s: %w", ref, err)
		}
		if target == nil || target.ID == entity.ID {
			continue
		}
		backRef, ok := backReference(entity, ref.Provider)
		if !ok {
			continue
		}
		if !target.SetRelationIfEmpty(inverse, backRef) {
			continue
		}
		if err := p.store.Save(ctx, target); err != nil {
			return applied, fmt.Errorf("save relation target %d: %w", target.ID, err)
		}
		applied++
		p.logger.Debug("back-filled relation",
			logging.FieldEntityID, target.ID,
			"relation", string(inverse),
			"ref", backRef.String(),
		)
	}
	return applied, nil
}

// PropagateAll runs one propagation pass over every entity that carries
// an external id, returning the total number of back-filled pointers.
func (p *Propagator) PropagateAll(ctx context.Context) (int, error) {
	entities, err := p.store.ListWithExternalIDs(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, entity := range entities {
		applied, err := p.Propagate(ctx, entity)
		total += applied
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// backReference picks the external ref other entities should use to point
// back at entity. Same provider as the forward reference when possible,
// otherwise the first id in provider order.
func backReference(entity *catalog.Entity, preferredProvider string) (catalog.ExternalRef, bool) {
	if id, ok := entity.ExternalID(preferredProvider); ok {
		return catalog.ExternalRef{Provider: preferredProvider, ID: id}, true
	}
	var best catalog.ExternalRef
	for provider, id := range entity.ExternalIDs {
		if best.IsZero() || provider < best.Provider {
			best = catalog.ExternalRef{Provider: provider, ID: id}
		}
	}
	if best.IsZero() {
		return catalog.ExternalRef{}, false
	}
	return best, true
}
