package catalog

import (
	"encoding/json"
	"sort"
)

// ProtectedSet tracks which fields an operator has explicitly edited.
// Protected fields are immutable to automated writers until the operator
// removes the protection or a forced write resets it.
type ProtectedSet map[Field]struct{}

// Has reports whether the field is protected.
func (s ProtectedSet) Has(f Field) bool {
	_, ok := s[f]
	return ok
}

// Add marks a field protected.
func (s ProtectedSet) Add(f Field) {
	s[f] = struct{}{}
}

// Remove clears a field's protection.
func (s ProtectedSet) Remove(f Field) {
	delete(s, f)
}

// Fields returns the protected fields in stable order.
func (s ProtectedSet) Fields() []Field {
	out := make([]Field, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EncodeProtectedSet serializes the set as a sorted JSON array for
// storage. An empty set encodes as the empty string.
func EncodeProtectedSet(s ProtectedSet) string {
	if len(s) == 0 {
		return ""
	}
	fields := s.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return ""
	}
	return string(raw)
}

// DecodeProtectedSet parses a stored protection set. Malformed payloads
// and field names outside the closed enum yield an empty or reduced set,
// never an error: a broken serialization must not block reconciliation.
func DecodeProtectedSet(raw string) ProtectedSet {
	set := make(ProtectedSet)
	if raw == "" {
		return set
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return set
	}
	for _, name := range names {
		if f, ok := ParseField(name); ok {
			set.Add(f)
		}
	}
	return set
}
