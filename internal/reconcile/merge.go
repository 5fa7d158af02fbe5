package reconcile

import (
	"collate/internal/catalog"
	"collate/internal/config"
	"collate/internal/providers"
)

// FieldChange records one applied field write for the run report.
type FieldChange struct {
	Field  catalog.Field `json:"field"`
	Before string        `json:"before"`
	After  string        `json:"after"`
}

// MergeResult summarizes what one record did to one entity.
type MergeResult struct {
	Created         bool
	Changes         []FieldChange
	RelationsAdded  int
	ExternalIDAdded bool
	Signal          bool
}

// Changed reports whether the merge altered the entity at all.
func (r MergeResult) Changed() bool {
	return r.Created || len(r.Changes) > 0 || r.RelationsAdded > 0 || r.ExternalIDAdded
}

// Merger applies provider records to entities through the protection
// ledger. It holds no state beyond provider priorities.
type Merger struct {
	cfg *config.Config
}

// NewMerger builds a merger bound to the config that ranks providers.
func NewMerger(cfg *config.Config) *Merger {
	return &Merger{cfg: cfg}
}

// Merge folds a record into an existing entity. Absent record fields are
// ignored; protected fields survive unless force is set. The entity is
// mutated in memory only — persisting it is the caller's job.
func (m *Merger) Merge(entity *catalog.Entity, record *providers.Record, force bool) MergeResult {
	var result MergeResult

	// A more authoritative source already owns this entity's facts; only
	// the incoming provider's own opinion fields may update.
	skipFacts := entity.SourceProvider != "" &&
		m.cfg.ProviderPriority(entity.SourceProvider) < m.cfg.ProviderPriority(record.Provider)

	for _, field := range catalog.WritableFields() {
		if field == catalog.FieldAltTitles {
			continue
		}
		if skipFacts && !field.IsProviderScoped() {
			continue
		}
		value, present := record.FieldValue(field)
		if !present {
			continue
		}
		before := entity.Value(field)
		if !entity.ConditionalSet(field, value, force) {
			continue
		}
		result.Changes = append(result.Changes, FieldChange{
			Field:  field,
			Before: catalog.FormatValue(field, before),
			After:  catalog.FormatValue(field, entity.Value(field)),
		})
		if isSignalChange(field, before, entity.Value(field)) {
			result.Signal = true
		}
	}

	if !skipFacts && len(record.AltTitles) > 0 && (force || !entity.Protected.Has(catalog.FieldAltTitles)) {
		before := append([]string(nil), entity.AltTitles...)
		if entity.UnionAltTitles(record.AltTitles) {
			result.Changes = append(result.Changes, FieldChange{
				Field:  catalog.FieldAltTitles,
				Before: catalog.FormatValue(catalog.FieldAltTitles, before),
				After:  catalog.FormatValue(catalog.FieldAltTitles, entity.AltTitles),
			})
		}
	}

	if entity.AttachExternalID(record.Provider, record.ID) {
		result.ExternalIDAdded = true
	}

	for kind, ref := range record.Relations {
		if entity.SetRelationIfEmpty(kind, ref) {
			result.RelationsAdded++
		}
	}

	if result.Signal {
		entity.UpdateAvailable = true
	}
	return result
}

// Create builds a fresh entity from a record that matched nothing.
func (m *Merger) Create(record *providers.Record) (*catalog.Entity, MergeResult) {
	entity := catalog.NewEntity()
	entity.Title = record.PrimaryTitle()
	entity.MediaType = record.MediaType
	entity.SourceProvider = record.Provider

	result := MergeResult{Created: true}
	for _, field := range catalog.WritableFields() {
		if field == catalog.FieldTitle || field == catalog.FieldAltTitles {
			continue
		}
		value, present := record.FieldValue(field)
		if !present {
			continue
		}
		if entity.ConditionalSet(field, value, false) {
			result.Changes = append(result.Changes, FieldChange{
				Field: field,
				After: catalog.FormatValue(field, entity.Value(field)),
			})
		}
	}
	entity.UnionAltTitles(record.AltTitles)
	entity.AttachExternalID(record.Provider, record.ID)
	for kind, ref := range record.Relations {
		if entity.SetRelationIfEmpty(kind, ref) {
			result.RelationsAdded++
		}
	}
	return entity, result
}

// isSignalChange reports whether an applied write represents a real-world
// update: a count strictly increasing or a status changing value. A
// decrease never signals.
func isSignalChange(field catalog.Field, before, after any) bool {
	if !field.IsSignal() {
		return false
	}
	if field.IsCount() {
		b, _ := before.(int)
		a, _ := after.(int)
		return a > b
	}
	// Status: any change of value, but not first population from empty.
	b, _ := before.(string)
	a, _ := after.(string)
	return b != "" && a != b
}
