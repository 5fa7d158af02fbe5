package providers

import (
	"strings"

	"collate/internal/catalog"
)

// Record is one provider's snapshot of a work. Pointer fields distinguish
// "provider did not send this" from a zero value: absent fields never
// participate in merging.
type Record struct {
	Provider  string
	ID        string
	MediaType catalog.MediaType

	Title       *string
	Description *string
	Status      *string
	Episodes    *int
	Chapters    *int
	Volumes     *int
	CoverURL    *string
	Score       *float64
	Rank        *int
	Popularity  *int
	Year        *int

	// Genres and AltTitles are absent when nil, present when non-nil
	// (an empty non-nil list means "provider says none").
	Genres    []string
	AltTitles []string

	Relations map[catalog.Relation]catalog.ExternalRef
}

// FieldValue returns the record's value for a writable field and whether
// the provider sent it at all.
func (r *Record) FieldValue(f catalog.Field) (any, bool) {
	switch f {
	case catalog.FieldTitle:
		if r.Title == nil {
			return nil, false
		}
		return *r.Title, true
	case catalog.FieldDescription:
		if r.Description == nil {
			return nil, false
		}
		return *r.Description, true
	case catalog.FieldStatus:
		if r.Status == nil {
			return nil, false
		}
		return *r.Status, true
	case catalog.FieldEpisodes:
		if r.Episodes == nil {
			return nil, false
		}
		return *r.Episodes, true
	case catalog.FieldChapters:
		if r.Chapters == nil {
			return nil, false
		}
		return *r.Chapters, true
	case catalog.FieldVolumes:
		if r.Volumes == nil {
			return nil, false
		}
		return *r.Volumes, true
	case catalog.FieldGenres:
		if r.Genres == nil {
			return nil, false
		}
		return append([]string(nil), r.Genres...), true
	case catalog.FieldAltTitles:
		if r.AltTitles == nil {
			return nil, false
		}
		return append([]string(nil), r.AltTitles...), true
	case catalog.FieldCoverURL:
		if r.CoverURL == nil {
			return nil, false
		}
		return *r.CoverURL, true
	case catalog.FieldScore:
		if r.Score == nil {
			return nil, false
		}
		return *r.Score, true
	case catalog.FieldRank:
		if r.Rank == nil {
			return nil, false
		}
		return *r.Rank, true
	case catalog.FieldPopularity:
		if r.Popularity == nil {
			return nil, false
		}
		return *r.Popularity, true
	case catalog.FieldYear:
		if r.Year == nil {
			return nil, false
		}
		return *r.Year, true
	default:
		return nil, false
	}
}

// PrimaryTitle returns the record's title, or the empty string when the
// provider sent none.
func (r *Record) PrimaryTitle() string {
	if r.Title == nil {
		return ""
	}
	return strings.TrimSpace(*r.Title)
}

// Ref returns the record's identity as an external reference.
func (r *Record) Ref() catalog.ExternalRef {
	return catalog.ExternalRef{Provider: strings.ToLower(r.Provider), ID: r.ID}
}
