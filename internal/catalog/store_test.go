package catalog_test

import (
	"context"
	"testing"
	"time"

	"collate/internal/catalog"
	"collate/internal/testsupport"
)

func newEntityFixture() *catalog.Entity {
	entity := catalog.NewEntity()
	entity.Title = "Berserk"
	entity.MediaType = catalog.MediaTypeManga
	entity.Description = "Dark fantasy"
	entity.Status = "ongoing"
	entity.Chapters = 364
	entity.Genres = []string{"action", "horror"}
	entity.Score = 9.4
	entity.SourceProvider = "mal"
	entity.AttachExternalID("mal", "2")
	entity.AltTitles = []string{"Kenpuu Denki Berserk"}
	return entity
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, newEntityFixture())
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if inserted.ID == 0 {
		t.Fatal("expected entity id to be assigned")
	}

	fetched, err := store.GetByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected entity")
	}
	if fetched.Title != "Berserk" || fetched.MediaType != catalog.MediaTypeManga {
		t.Fatalf("unexpected entity: %+v", fetched)
	}
	if fetched.Chapters != 364 || fetched.Score != 9.4 {
		t.Fatalf("numeric fields lost: %+v", fetched)
	}
	if len(fetched.Genres) != 2 {
		t.Fatalf("genres lost: %v", fetched.Genres)
	}
	if id, ok := fetched.ExternalID("mal"); !ok || id != "2" {
		t.Fatalf("external id lost: %q %v", id, ok)
	}
	if len(fetched.AltTitles) != 1 || fetched.AltTitles[0] != "Kenpuu Denki Berserk" {
		t.Fatalf("alt titles lost: %v", fetched.AltTitles)
	}
	if fetched.Enriched() {
		t.Fatal("fresh entity must not be marked enriched")
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	entity, err := store.GetByID(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if entity != nil {
		t.Fatalf("expected nil for missing entity, got %+v", entity)
	}
}

func TestFindByExternalID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, newEntityFixture())
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	found, err := store.FindByExternalID(ctx, "mal", "2")
	if err != nil {
		t.Fatalf("FindByExternalID failed: %v", err)
	}
	if found == nil || found.ID != inserted.ID {
		t.Fatalf("expected entity %d, got %+v", inserted.ID, found)
	}

	missing, err := store.FindByExternalID(ctx, "mal", "404")
	if err != nil {
		t.Fatalf("FindByExternalID failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}
}

func TestSaveDoesNotOverwriteExternalID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, newEntityFixture())
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Even if in-memory state is tampered with, the schema keeps the
	// original mapping.
	inserted.ExternalIDs["mal"] = "999"
	if err := store.Save(ctx, inserted); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if id, _ := fetched.ExternalID("mal"); id != "2" {
		t.Fatalf("external id overwritten: %q", id)
	}
}

func TestSavePersistsRelationsAndProtection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, newEntityFixture())
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	inserted.SetRelationIfEmpty(catalog.RelationAdaptation, catalog.ExternalRef{Provider: "anilist", ID: "77"})
	inserted.Protected.Add(catalog.FieldDescription)
	inserted.UnionAltTitles([]string{"ベルセルク"})
	if err := store.Save(ctx, inserted); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	ref, ok := fetched.Relations[catalog.RelationAdaptation]
	if !ok || ref.Provider != "anilist" || ref.ID != "77" {
		t.Fatalf("relation lost: %+v", fetched.Relations)
	}
	if !fetched.Protected.Has(catalog.FieldDescription) {
		t.Fatal("protection lost")
	}
	if len(fetched.AltTitles) != 2 {
		t.Fatalf("alt titles lost: %v", fetched.AltTitles)
	}
}

func TestListWithExternalIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.Insert(ctx, newEntityFixture()); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	orphan := catalog.NewEntity()
	orphan.Title = "Untracked Work"
	if _, err := store.Insert(ctx, orphan); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(all))
	}

	worklist, err := store.ListWithExternalIDs(ctx)
	if err != nil {
		t.Fatalf("ListWithExternalIDs failed: %v", err)
	}
	if len(worklist) != 1 || worklist[0].Title != "Berserk" {
		t.Fatalf("unexpected worklist: %+v", worklist)
	}
}

func TestTitleEntriesIncludeAlternates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, newEntityFixture())
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	entries, err := store.TitleEntries(ctx)
	if err != nil {
		t.Fatalf("TitleEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected primary + alternate entries, got %d", len(entries))
	}
	var sawAlt bool
	for _, entry := range entries {
		if entry.EntityID != inserted.ID {
			t.Fatalf("unexpected entity id: %+v", entry)
		}
		if entry.TitleKey == "" {
			t.Fatalf("empty title key: %+v", entry)
		}
		if entry.Alt {
			sawAlt = true
		}
	}
	if !sawAlt {
		t.Fatal("expected alternate title entry")
	}
}

func TestMarkEnrichedAndSummarize(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, newEntityFixture())
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	at := time.Now().UTC()
	if err := store.MarkEnriched(ctx, inserted.ID, at); err != nil {
		t.Fatalf("MarkEnriched failed: %v", err)
	}
	fetched, err := store.GetByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !fetched.Enriched() {
		t.Fatal("expected enriched timestamp")
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Total != 1 || summary.Enriched != 1 || summary.ExternalIDs != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	started := time.Now().UTC().Add(-time.Minute)
	finished := time.Now().UTC()
	record := catalog.RunRecord{
		Token:      "run-token-1",
		State:      "completed",
		StartedAt:  started,
		FinishedAt: &finished,
		Processed:  10,
		Updated:    4,
		Skipped:    5,
		Failed:     1,
		ReportPath: "/tmp/report.json",
	}
	if err := store.RecordRun(ctx, record); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	// Upsert replaces the earlier state for the same token.
	record.State = "failed"
	if err := store.RecordRun(ctx, record); err != nil {
		t.Fatalf("RecordRun upsert failed: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].State != "failed" || runs[0].Processed != 10 || runs[0].FinishedAt == nil {
		t.Fatalf("unexpected run record: %+v", runs[0])
	}
}
