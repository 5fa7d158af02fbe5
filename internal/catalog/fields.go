package catalog

import (
	"sort"
	"strconv"
	"strings"
)

// Field names one writable entity attribute. The set is closed: every
// automated write goes through an exhaustive switch on this enum, so a
// field name that never existed (or arrives in a stale serialized
// protection set) cannot reach the database.
type Field string

const (
	FieldTitle       Field = "title"
	FieldAltTitles   Field = "alt_titles"
	FieldDescription Field = "description"
	FieldStatus      Field = "status"
	FieldEpisodes    Field = "episodes"
	FieldChapters    Field = "chapters"
	FieldVolumes     Field = "volumes"
	FieldGenres      Field = "genres"
	FieldCoverURL    Field = "cover_url"
	FieldScore       Field = "score"
	FieldRank        Field = "rank"
	FieldPopularity  Field = "popularity"
	FieldYear        Field = "year"
)

var writableFields = []Field{
	FieldTitle,
	FieldAltTitles,
	FieldDescription,
	FieldStatus,
	FieldEpisodes,
	FieldChapters,
	FieldVolumes,
	FieldGenres,
	FieldCoverURL,
	FieldScore,
	FieldRank,
	FieldPopularity,
	FieldYear,
}

var fieldSet = func() map[Field]struct{} {
	set := make(map[Field]struct{}, len(writableFields))
	for _, f := range writableFields {
		set[f] = struct{}{}
	}
	return set
}()

// WritableFields returns the ordered closed set of writable fields.
func WritableFields() []Field {
	cp := make([]Field, len(writableFields))
	copy(cp, writableFields)
	return cp
}

// ParseField converts a string into a known Field.
func ParseField(value string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(value)))
	_, ok := fieldSet[f]
	return f, ok
}

// IsCount reports whether the field is a monotonic progress counter.
func (f Field) IsCount() bool {
	switch f {
	case FieldEpisodes, FieldChapters, FieldVolumes:
		return true
	default:
		return false
	}
}

// IsSignal reports whether a change to the field represents a real-world
// update worth surfacing to the operator. Counts signal on increase,
// status on any change; cosmetic fields never signal.
func (f Field) IsSignal() bool {
	return f.IsCount() || f == FieldStatus
}

// IsProviderScoped reports whether the field carries a provider's own
// opinion (rank, popularity) rather than facts about the work. Provider-
// scoped fields are exempt from the source-priority rule.
func (f Field) IsProviderScoped() bool {
	switch f {
	case FieldRank, FieldPopularity:
		return true
	default:
		return false
	}
}

// FormatValue renders a field value for diffs and reports. Nil renders as
// the empty string.
func FormatValue(f Field, value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		return strings.Join(v, ", ")
	default:
		return ""
	}
}

// valueEqual compares two values of the same field. List fields compare as
// sets; everything else compares by value.
func valueEqual(f Field, a, b any) bool {
	if f == FieldGenres || f == FieldAltTitles {
		left, _ := a.([]string)
		right, _ := b.([]string)
		return stringSetEqual(left, right)
	}
	return a == b
}

func stringSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	left := append([]string(nil), a...)
	right := append([]string(nil), b...)
	sort.Strings(left)
	sort.Strings(right)
	for i := range left {
		if left[i] != right[i] {
			return false
		}
	}
	return true
}
