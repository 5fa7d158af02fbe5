package catalog_test

import (
	"testing"

	"collate/internal/catalog"
)

func TestConditionalSetRespectsProtection(t *testing.T) {
	entity := catalog.NewEntity()
	entity.Description = "operator prose"
	entity.Protected.Add(catalog.FieldDescription)

	if entity.ConditionalSet(catalog.FieldDescription, "provider prose", false) {
		t.Fatal("expected protected field write to be refused")
	}
	if entity.Description != "operator prose" {
		t.Fatalf("protected value changed: %q", entity.Description)
	}
}

func TestConditionalSetForceClearsProtection(t *testing.T) {
	entity := catalog.NewEntity()
	entity.Description = "operator prose"
	entity.Protected.Add(catalog.FieldDescription)

	if !entity.ConditionalSet(catalog.FieldDescription, "reset prose", true) {
		t.Fatal("expected forced write to apply")
	}
	if entity.Description != "reset prose" {
		t.Fatalf("unexpected description: %q", entity.Description)
	}
	if entity.Protected.Has(catalog.FieldDescription) {
		t.Fatal("forced write should clear protection")
	}

	// Subsequent automated writes see an unprotected field again.
	if !entity.ConditionalSet(catalog.FieldDescription, "provider prose", false) {
		t.Fatal("expected write after forced reset to apply")
	}
}

func TestConditionalSetNoOpOnEqualValue(t *testing.T) {
	entity := catalog.NewEntity()
	entity.Chapters = 120

	if entity.ConditionalSet(catalog.FieldChapters, 120, false) {
		t.Fatal("equal value should be a no-op")
	}
	if entity.ConditionalSet(catalog.FieldGenres, []string(nil), false) {
		t.Fatal("empty genres against empty genres should be a no-op")
	}

	entity.Genres = []string{"action", "drama"}
	if entity.ConditionalSet(catalog.FieldGenres, []string{"drama", "action"}, false) {
		t.Fatal("genre lists compare as sets")
	}
	if !entity.ConditionalSet(catalog.FieldGenres, []string{"drama", "mystery"}, false) {
		t.Fatal("changed genre set should apply")
	}
}

func TestConditionalSetRejectsWrongType(t *testing.T) {
	entity := catalog.NewEntity()
	if entity.ConditionalSet(catalog.FieldChapters, "twelve", false) {
		t.Fatal("mistyped value must not apply")
	}
	if entity.ConditionalSet(catalog.FieldChapters, nil, false) {
		t.Fatal("nil value must not apply")
	}
}

func TestAttachExternalIDFillOnly(t *testing.T) {
	entity := catalog.NewEntity()
	if !entity.AttachExternalID("MAL", "123") {
		t.Fatal("first attach should apply")
	}
	if entity.AttachExternalID("mal", "456") {
		t.Fatal("conflicting id must be refused")
	}
	if entity.AttachExternalID("mal", "123") {
		t.Fatal("re-attach of the same id is a no-op")
	}
	if id, ok := entity.ExternalID("mal"); !ok || id != "123" {
		t.Fatalf("unexpected external id: %q %v", id, ok)
	}
}

func TestSetRelationIfEmpty(t *testing.T) {
	entity := catalog.NewEntity()
	ref := catalog.ExternalRef{Provider: "mal", ID: "789"}
	if !entity.SetRelationIfEmpty(catalog.RelationSequel, ref) {
		t.Fatal("empty slot should accept relation")
	}
	other := catalog.ExternalRef{Provider: "anilist", ID: "42"}
	if entity.SetRelationIfEmpty(catalog.RelationSequel, other) {
		t.Fatal("populated slot must not be replaced")
	}
	if got := entity.Relations[catalog.RelationSequel]; got != ref {
		t.Fatalf("unexpected relation ref: %+v", got)
	}
}

func TestUnionAltTitlesDeduplicatesByNormalizedForm(t *testing.T) {
	entity := catalog.NewEntity()
	entity.Title = "Grimgar of Fantasy and Ash"
	entity.AltTitles = []string{"Hai to Gensou no Grimgar"}

	grew := entity.UnionAltTitles([]string{
		"GRIMGAR of Fantasy & Ash!!",
		"Hai to Gensou no Grimgar",
		"灰と幻想のグリムガル",
	})
	if !grew {
		t.Fatal("expected new alternate title")
	}
	if len(entity.AltTitles) != 2 {
		t.Fatalf("unexpected alt titles: %v", entity.AltTitles)
	}
	if entity.AltTitles[1] != "灰と幻想のグリムガル" {
		t.Fatalf("expected CJK title appended, got %v", entity.AltTitles)
	}
}

func TestRelationInverse(t *testing.T) {
	cases := map[catalog.Relation]catalog.Relation{
		catalog.RelationPrequel:     catalog.RelationSequel,
		catalog.RelationSequel:      catalog.RelationPrequel,
		catalog.RelationAdaptation:  catalog.RelationAdaptedFrom,
		catalog.RelationAdaptedFrom: catalog.RelationAdaptation,
	}
	for kind, want := range cases {
		inv, ok := kind.Inverse()
		if !ok || inv != want {
			t.Fatalf("inverse of %s = %s (%v), want %s", kind, inv, ok, want)
		}
	}
	if _, ok := catalog.Relation("spinoff").Inverse(); ok {
		t.Fatal("unknown relation must have no inverse")
	}
}

func TestMediaTypeCompatible(t *testing.T) {
	cases := []struct {
		a, b catalog.MediaType
		want bool
	}{
		{catalog.MediaTypeManga, catalog.MediaTypeManga, true},
		{catalog.MediaTypeManga, catalog.MediaTypeManhwa, true},
		{catalog.MediaTypeManhua, catalog.MediaTypeManhwa, true},
		{catalog.MediaTypeManga, catalog.MediaTypeLightNovel, false},
		{catalog.MediaTypeLightNovel, catalog.MediaTypeLightNovel, true},
		{catalog.MediaTypeAnime, catalog.MediaTypeManga, false},
		{"", catalog.MediaTypeManga, true},
		{catalog.MediaTypeGame, "", true},
	}
	for _, tc := range cases {
		if got := tc.a.Compatible(tc.b); got != tc.want {
			t.Errorf("Compatible(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestParseMediaTypeAliases(t *testing.T) {
	cases := map[string]catalog.MediaType{
		"Light Novel": catalog.MediaTypeLightNovel,
		"lightnovel":  catalog.MediaTypeLightNovel,
		"LN":          catalog.MediaTypeLightNovel,
		"TV":          catalog.MediaTypeShow,
		"manhwa":      catalog.MediaTypeManhwa,
	}
	for input, want := range cases {
		got, ok := catalog.ParseMediaType(input)
		if !ok || got != want {
			t.Errorf("ParseMediaType(%q) = %q (%v), want %q", input, got, ok, want)
		}
	}
	if _, ok := catalog.ParseMediaType("podcast"); ok {
		t.Error("unknown media type must not parse")
	}
}

func TestProtectedSetRoundTrip(t *testing.T) {
	set := make(catalog.ProtectedSet)
	set.Add(catalog.FieldTitle)
	set.Add(catalog.FieldGenres)

	encoded := catalog.EncodeProtectedSet(set)
	decoded := catalog.DecodeProtectedSet(encoded)
	if !decoded.Has(catalog.FieldTitle) || !decoded.Has(catalog.FieldGenres) || len(decoded) != 2 {
		t.Fatalf("round trip mismatch: %v", decoded.Fields())
	}
}

func TestDecodeProtectedSetLenient(t *testing.T) {
	if got := catalog.DecodeProtectedSet("not json"); len(got) != 0 {
		t.Fatalf("malformed payload should decode empty, got %v", got.Fields())
	}
	decoded := catalog.DecodeProtectedSet(`["title","no_such_field"]`)
	if !decoded.Has(catalog.FieldTitle) || len(decoded) != 1 {
		t.Fatalf("unknown field names must be dropped, got %v", decoded.Fields())
	}
}
