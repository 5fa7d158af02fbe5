package catalog

import (
	"strings"
	"time"

	"collate/internal/textutil"
)

// Entity is one catalog item assembled from several providers.
type Entity struct {
	ID        int64
	Title     string
	AltTitles []string
	MediaType MediaType

	// ExternalIDs maps provider name to provider-native id, at most one
	// per provider. Once set, an id is never overwritten with a
	// conflicting value.
	ExternalIDs map[string]string

	// Relations maps relation kind to the external ref of the related
	// work. Pointers, once non-null, are never silently replaced;
	// propagation only fills empty slots.
	Relations map[Relation]ExternalRef

	Protected ProtectedSet

	Description string
	Status      string
	Episodes    int
	Chapters    int
	Volumes     int
	Genres      []string
	CoverURL    string
	Score       float64
	Rank        int
	Popularity  int
	Year        int

	// SourceProvider is the authoritative source for original-language
	// metadata; lower-priority providers do not override its facts.
	SourceProvider string

	EnrichedAt      *time.Time
	UpdateAvailable bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewEntity constructs an empty entity with initialized maps.
func NewEntity() *Entity {
	return &Entity{
		ExternalIDs: make(map[string]string),
		Relations:   make(map[Relation]ExternalRef),
		Protected:   make(ProtectedSet),
	}
}

// TitleKey returns the normalized comparison key of the primary title.
func (e *Entity) TitleKey() string {
	return textutil.NormalizeTitle(e.Title)
}

func normalizeAltKey(title string) string {
	return textutil.NormalizeTitle(title)
}

// Value returns the current value of a writable field.
func (e *Entity) Value(f Field) any {
	switch f {
	case FieldTitle:
		return e.Title
	case FieldAltTitles:
		return e.AltTitles
	case FieldDescription:
		return e.Description
	case FieldStatus:
		return e.Status
	case FieldEpisodes:
		return e.Episodes
	case FieldChapters:
		return e.Chapters
	case FieldVolumes:
		return e.Volumes
	case FieldGenres:
		return e.Genres
	case FieldCoverURL:
		return e.CoverURL
	case FieldScore:
		return e.Score
	case FieldRank:
		return e.Rank
	case FieldPopularity:
		return e.Popularity
	case FieldYear:
		return e.Year
	default:
		return nil
	}
}

func (e *Entity) setValue(f Field, value any) bool {
	switch f {
	case FieldTitle:
		v, ok := value.(string)
		if !ok {
			return false
		}
		e.Title = v
	case FieldAltTitles:
		v, ok := value.([]string)
		if !ok {
			return false
		}
		e.AltTitles = v
	case FieldDescription:
		v, ok := value.(string)
		if !ok {
			return false
		}
		e.Description = v
	case FieldStatus:
		v, ok := value.(string)
		if !ok {
			return false
		}
		e.Status = v
	case FieldEpisodes:
		v, ok := value.(int)
		if !ok {
			return false
		}
		e.Episodes = v
	case FieldChapters:
		v, ok := value.(int)
		if !ok {
			return false
		}
		e.Chapters = v
	case FieldVolumes:
		v, ok := value.(int)
		if !ok {
			return false
		}
		e.Volumes = v
	case FieldGenres:
		v, ok := value.([]string)
		if !ok {
			return false
		}
		e.Genres = v
	case FieldCoverURL:
		v, ok := value.(string)
		if !ok {
			return false
		}
		e.CoverURL = v
	case FieldScore:
		v, ok := value.(float64)
		if !ok {
			return false
		}
		e.Score = v
	case FieldRank:
		v, ok := value.(int)
		if !ok {
			return false
		}
		e.Rank = v
	case FieldPopularity:
		v, ok := value.(int)
		if !ok {
			return false
		}
		e.Popularity = v
	case FieldYear:
		v, ok := value.(int)
		if !ok {
			return false
		}
		e.Year = v
	default:
		return false
	}
	return true
}

// ConditionalSet writes value into the field and reports whether the write
// applied. Non-forced writes are refused for protected fields and for
// values equal to the current one (a no-op, not an error). A forced write
// bypasses protection and clears the field's protection entry, since the
// operator asked for a reset.
func (e *Entity) ConditionalSet(f Field, value any, force bool) bool {
	if value == nil {
		return false
	}
	if force {
		e.Protected.Remove(f)
	} else if e.Protected.Has(f) {
		return false
	}
	if valueEqual(f, e.Value(f), value) {
		return false
	}
	return e.setValue(f, value)
}

// ExternalID returns the entity's id at the given provider.
func (e *Entity) ExternalID(provider string) (string, bool) {
	id, ok := e.ExternalIDs[strings.ToLower(provider)]
	return id, ok
}

// AttachExternalID records a provider id if the provider slot is empty.
// A conflicting id for an already-populated provider is refused; the
// caller decides whether that is worth logging.
func (e *Entity) AttachExternalID(provider, id string) bool {
	provider = strings.ToLower(strings.TrimSpace(provider))
	id = strings.TrimSpace(id)
	if provider == "" || id == "" {
		return false
	}
	if _, ok := e.ExternalIDs[provider]; ok {
		return false
	}
	if e.ExternalIDs == nil {
		e.ExternalIDs = make(map[string]string)
	}
	e.ExternalIDs[provider] = id
	return true
}

// SetRelationIfEmpty fills a relation slot, refusing to replace an
// existing pointer.
func (e *Entity) SetRelationIfEmpty(kind Relation, ref ExternalRef) bool {
	if ref.IsZero() {
		return false
	}
	if existing, ok := e.Relations[kind]; ok && !existing.IsZero() {
		return false
	}
	if e.Relations == nil {
		e.Relations = make(map[Relation]ExternalRef)
	}
	e.Relations[kind] = ref
	return true
}

// UnionAltTitles merges incoming alternate titles into the entity's set,
// deduplicating by normalized form against both the existing alternates
// and the primary title. Reports whether the set grew.
func (e *Entity) UnionAltTitles(incoming []string) bool {
	seen := make(map[string]struct{}, len(e.AltTitles)+1)
	if key := e.TitleKey(); key != "" {
		seen[key] = struct{}{}
	}
	for _, title := range e.AltTitles {
		if key := textutil.NormalizeTitle(title); key != "" {
			seen[key] = struct{}{}
		}
	}
	grew := false
	for _, title := range incoming {
		key := textutil.NormalizeTitle(title)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		e.AltTitles = append(e.AltTitles, strings.TrimSpace(title))
		grew = true
	}
	return grew
}

// Enriched reports whether the entity has ever completed enrichment.
func (e *Entity) Enriched() bool {
	return e.EnrichedAt != nil
}
