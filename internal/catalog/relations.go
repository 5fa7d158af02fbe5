package catalog

import "strings"

// Relation names a directional link between two catalog entities.
type Relation string

const (
	RelationPrequel     Relation = "prequel"
	RelationSequel      Relation = "sequel"
	RelationAdaptation  Relation = "adaptation"
	RelationAdaptedFrom Relation = "adapted_from"
)

var relationInverses = map[Relation]Relation{
	RelationPrequel:     RelationSequel,
	RelationSequel:      RelationPrequel,
	RelationAdaptation:  RelationAdaptedFrom,
	RelationAdaptedFrom: RelationAdaptation,
}

// Inverse returns the opposite direction of a relation. Unknown relation
// kinds (preserved from older data) have no inverse and are never
// propagated.
func (r Relation) Inverse() (Relation, bool) {
	inv, ok := relationInverses[r]
	return inv, ok
}

// ExternalRef identifies an entity by a provider-native id, e.g. mal:789.
// References are weak: they are lookup keys, not ownership.
type ExternalRef struct {
	Provider string
	ID       string
}

// ParseExternalRef parses the provider:id wire form.
func ParseExternalRef(value string) (ExternalRef, bool) {
	provider, id, ok := strings.Cut(strings.TrimSpace(value), ":")
	provider = strings.ToLower(strings.TrimSpace(provider))
	id = strings.TrimSpace(id)
	if !ok || provider == "" || id == "" {
		return ExternalRef{}, false
	}
	return ExternalRef{Provider: provider, ID: id}, true
}

func (r ExternalRef) String() string {
	return r.Provider + ":" + r.ID
}

// IsZero reports whether the reference is unset.
func (r ExternalRef) IsZero() bool {
	return r.Provider == "" || r.ID == ""
}
