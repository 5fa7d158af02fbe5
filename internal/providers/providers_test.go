package providers_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"collate/internal/catalog"
	"collate/internal/config"
	"collate/internal/providers"
	"collate/internal/testsupport"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestFieldValueDistinguishesAbsent(t *testing.T) {
	record := &providers.Record{
		Provider: "mal",
		ID:       "1",
		Title:    strPtr("Monster"),
		Chapters: intPtr(162),
	}

	if _, ok := record.FieldValue(catalog.FieldDescription); ok {
		t.Fatal("absent field must report not-present")
	}
	value, ok := record.FieldValue(catalog.FieldChapters)
	if !ok || value.(int) != 162 {
		t.Fatalf("unexpected chapters: %v %v", value, ok)
	}
	if _, ok := record.FieldValue(catalog.FieldGenres); ok {
		t.Fatal("nil genres must report not-present")
	}
	record.Genres = []string{}
	if _, ok := record.FieldValue(catalog.FieldGenres); !ok {
		t.Fatal("empty non-nil genres must report present")
	}
}

func TestRateLimitErrorClassifiesTransient(t *testing.T) {
	err := &providers.RateLimitError{Provider: "anilist", RetryAfter: 3 * time.Second}
	if !providers.IsTransient(err) {
		t.Fatal("rate limit must classify as transient")
	}
	hint, ok := providers.RetryAfterHint(err)
	if !ok || hint != 3*time.Second {
		t.Fatalf("unexpected hint: %s %v", hint, ok)
	}

	wrapped := providers.Wrap(providers.ErrFatal, "anilist", "fetch", "bad payload", nil)
	if providers.IsTransient(wrapped) {
		t.Fatal("fatal error must not classify as transient")
	}
	if _, ok := providers.RetryAfterHint(wrapped); ok {
		t.Fatal("fatal error carries no retry hint")
	}
}

func TestRegistryOrdersByPriority(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithProvider("mal", config.Provider{Priority: 1, Enabled: true}),
		testsupport.WithProvider("anilist", config.Provider{Priority: 2, Enabled: true}),
		testsupport.WithProvider("mangadex", config.Provider{Priority: 3, Enabled: false}),
	)

	registry := providers.NewRegistry(cfg)
	registry.Register(providers.NewSnapshotAdapter("anilist", nil))
	registry.Register(providers.NewSnapshotAdapter("mangadex", nil))
	registry.Register(providers.NewSnapshotAdapter("MAL", nil))

	ordered := registry.Ordered()
	if len(ordered) != 2 {
		t.Fatalf("disabled provider should be excluded, got %d adapters", len(ordered))
	}
	if ordered[0].Name() != "mal" || ordered[1].Name() != "anilist" {
		t.Fatalf("unexpected order: %s, %s", ordered[0].Name(), ordered[1].Name())
	}

	if _, ok := registry.Adapter("mangadex"); ok {
		t.Fatal("disabled adapter must not resolve")
	}
	if _, ok := registry.Adapter("mal"); !ok {
		t.Fatal("enabled adapter should resolve")
	}
}

func TestSnapshotAdapterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mal.json")
	payload := `{
        "provider": "MAL",
        "records": [
            {
                "id": "2",
                "title": "Berserk",
                "media_type": "manga",
                "chapters": 364,
                "status": "ongoing",
                "genres": ["action", "horror"],
                "alt_titles": ["Kenpuu Denki Berserk"],
                "relations": {"adaptation": "mal:33"}
            }
        ]
    }`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	adapter, err := providers.OpenSnapshotAdapter(path)
	if err != nil {
		t.Fatalf("OpenSnapshotAdapter failed: %v", err)
	}
	if adapter.Name() != "mal" {
		t.Fatalf("provider name not lowercased: %q", adapter.Name())
	}

	ctx := context.Background()
	record, err := adapter.FetchByID(ctx, "2")
	if err != nil {
		t.Fatalf("FetchByID failed: %v", err)
	}
	if record.PrimaryTitle() != "Berserk" || record.MediaType != catalog.MediaTypeManga {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Chapters == nil || *record.Chapters != 364 {
		t.Fatalf("chapters lost: %+v", record.Chapters)
	}
	if record.Episodes != nil {
		t.Fatal("absent episodes must stay nil")
	}
	ref, ok := record.Relations[catalog.RelationAdaptation]
	if !ok || ref.Provider != "mal" || ref.ID != "33" {
		t.Fatalf("relation lost: %+v", record.Relations)
	}

	_, err = adapter.FetchByID(ctx, "404")
	if !errors.Is(err, providers.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadSnapshotRejectsBadRecords(t *testing.T) {
	dir := t.TempDir()

	missingID := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(missingID, []byte(`{"provider":"mal","records":[{"title":"x"}]}`), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if _, _, err := providers.LoadSnapshot(missingID); !errors.Is(err, providers.ErrFatal) {
		t.Fatalf("expected fatal decode error, got %v", err)
	}

	badType := filepath.Join(dir, "badtype.json")
	if err := os.WriteFile(badType, []byte(`{"provider":"mal","records":[{"id":"1","media_type":"podcast"}]}`), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if _, _, err := providers.LoadSnapshot(badType); !errors.Is(err, providers.ErrFatal) {
		t.Fatalf("expected fatal decode error, got %v", err)
	}
}
