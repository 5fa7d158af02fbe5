package enrich_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"collate/internal/catalog"
	"collate/internal/config"
	"collate/internal/enrich"
	"collate/internal/providers"
	"collate/internal/testsupport"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// fastConfig keeps the minimum 1s pacing; the pace window doubles as the
// slack that makes the pause and cancel assertions deterministic.
func fastConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t,
		testsupport.WithProvider("mal", config.Provider{Priority: 1, DelaySeconds: 1, Enabled: true}),
	)
}

func seedEntity(t *testing.T, store *catalog.Store, title, provider, id string, episodes int) *catalog.Entity {
	t.Helper()
	entity := catalog.NewEntity()
	entity.Title = title
	entity.Episodes = episodes
	entity.SourceProvider = provider
	entity.AttachExternalID(provider, id)
	inserted, err := store.Insert(context.Background(), entity)
	if err != nil {
		t.Fatalf("insert entity: %v", err)
	}
	return inserted
}

func fetchedRecord(provider, id, title string, episodes int) *providers.Record {
	return &providers.Record{
		Provider: provider,
		ID:       id,
		Title:    strPtr(title),
		Episodes: intPtr(episodes),
	}
}

func TestRunEnrichesWorklistAndFlushesReport(t *testing.T) {
	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	entity := seedEntity(t, store, "Foo", "mal", "123", 12)

	adapter := testsupport.NewScriptedAdapter("mal")
	adapter.Queue("123", testsupport.ScriptedResponse{Record: fetchedRecord("mal", "123", "Foo", 13)})

	registry := providers.NewRegistry(cfg)
	registry.Register(adapter)

	controller := enrich.New(cfg, store, registry, nil)
	var progressCalls int
	result, err := controller.Run(context.Background(), enrich.StartOptions{
		Progress: func(p enrich.Progress) {
			progressCalls++
			if p.Total != 1 || p.Current != 1 || p.Label != "Foo" {
				t.Errorf("unexpected progress: %+v", p)
			}
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.AlreadyRunning {
		t.Fatal("unexpected already-running result")
	}
	if progressCalls != 1 {
		t.Fatalf("expected one progress callback, got %d", progressCalls)
	}

	last := controller.LastRun()
	if last == nil || last.State != string(enrich.StateCompleted) {
		t.Fatalf("unexpected last run: %+v", last)
	}
	if last.Processed != 1 || last.Updated != 1 || last.Failed != 0 {
		t.Fatalf("unexpected counts: %+v", last)
	}
	if _, err := os.Stat(last.ReportPath); err != nil {
		t.Fatalf("report artifact missing: %v", err)
	}

	stored, err := store.GetByID(context.Background(), entity.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Episodes != 13 || !stored.UpdateAvailable || !stored.Enriched() {
		t.Fatalf("enrichment not applied: %+v", stored)
	}

	if controller.Status().State != enrich.StateIdle {
		t.Fatalf("controller should reset to idle, got %s", controller.Status().State)
	}

	runs, err := store.ListRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Token != result.Token {
		t.Fatalf("run history missing: %+v", runs)
	}
}

func TestSecondStartAnswersAlreadyRunning(t *testing.T) {
	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedEntity(t, store, "Foo", "mal", "123", 12)

	adapter := testsupport.NewScriptedAdapter("mal")
	adapter.Gate = make(chan struct{})
	adapter.Queue("123", testsupport.ScriptedResponse{Record: fetchedRecord("mal", "123", "Foo", 12)})

	registry := providers.NewRegistry(cfg)
	registry.Register(adapter)

	controller := enrich.New(cfg, store, registry, nil)
	first, err := controller.Start(context.Background(), enrich.StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	second, err := controller.Start(context.Background(), enrich.StartOptions{})
	if err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	if !second.AlreadyRunning || second.Token != first.Token {
		t.Fatalf("expected already-running answer, got %+v", second)
	}

	close(adapter.Gate)
	controller.Wait()
}

func TestPauseAndResume(t *testing.T) {
	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedEntity(t, store, "Foo", "mal", "123", 12)
	seedEntity(t, store, "Bar", "mal", "456", 1)

	adapter := testsupport.NewScriptedAdapter("mal")
	adapter.Gate = make(chan struct{})
	adapter.Queue("123", testsupport.ScriptedResponse{Record: fetchedRecord("mal", "123", "Foo", 12)})
	adapter.Queue("456", testsupport.ScriptedResponse{Record: fetchedRecord("mal", "456", "Bar", 1)})

	registry := providers.NewRegistry(cfg)
	registry.Register(adapter)

	controller := enrich.New(cfg, store, registry, nil)
	result, err := controller.Start(context.Background(), enrich.StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let the first item through, then pause before the second.
	adapter.Gate <- struct{}{}
	if !controller.Pause(result.Token) {
		t.Fatal("pause of active run should succeed")
	}
	if state := controller.Status().State; state != enrich.StatePaused {
		t.Fatalf("expected paused state, got %s", state)
	}

	// While paused the second item must not be fetched.
	select {
	case adapter.Gate <- struct{}{}:
		t.Fatal("job loop fetched while paused")
	case <-time.After(100 * time.Millisecond):
	}

	if !controller.Resume(result.Token) {
		t.Fatal("resume of paused run should succeed")
	}
	adapter.Gate <- struct{}{}
	controller.Wait()

	last := controller.LastRun()
	if last == nil || last.State != string(enrich.StateCompleted) || last.Processed != 2 {
		t.Fatalf("unexpected last run: %+v", last)
	}
}

func TestCancelStopsRunAndKeepsPartialProgress(t *testing.T) {
	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedEntity(t, store, "Foo", "mal", "123", 12)
	seedEntity(t, store, "Bar", "mal", "456", 1)

	adapter := testsupport.NewScriptedAdapter("mal")
	adapter.Gate = make(chan struct{})
	adapter.Queue("123", testsupport.ScriptedResponse{Record: fetchedRecord("mal", "123", "Foo", 13)})
	adapter.Queue("456", testsupport.ScriptedResponse{Record: fetchedRecord("mal", "456", "Bar", 2)})

	registry := providers.NewRegistry(cfg)
	registry.Register(adapter)

	controller := enrich.New(cfg, store, registry, nil)
	result, err := controller.Start(context.Background(), enrich.StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	adapter.Gate <- struct{}{}
	if !controller.Cancel(result.Token) {
		t.Fatal("cancel of active run should succeed")
	}
	controller.Wait()

	last := controller.LastRun()
	if last == nil || last.State != string(enrich.StateCancelled) {
		t.Fatalf("expected cancelled run, got %+v", last)
	}
	if last.Processed < 1 {
		t.Fatalf("partial progress discarded: %+v", last)
	}

	// The committed first item survives cancellation intact.
	foo, err := store.FindByExternalID(context.Background(), "mal", "123")
	if err != nil {
		t.Fatalf("FindByExternalID failed: %v", err)
	}
	if foo.Episodes != 13 {
		t.Fatalf("committed write lost: %+v", foo)
	}

	// A stale cancel for the finished run is a no-op.
	if controller.Cancel(result.Token) {
		t.Fatal("stale cancel must be a no-op")
	}
	if controller.Pause(result.Token) {
		t.Fatal("stale pause must be a no-op")
	}
}

func TestTransientFailureRetriesThenRecordsFailure(t *testing.T) {
	cfg := fastConfig(t)
	cfg.Enrichment.MaxRetries = 1
	store := testsupport.MustOpenStore(t, cfg)
	seedEntity(t, store, "Foo", "mal", "123", 12)
	seedEntity(t, store, "Bar", "mal", "456", 1)

	adapter := testsupport.NewScriptedAdapter("mal")
	transient := &providers.RateLimitError{Provider: "mal", RetryAfter: 10 * time.Millisecond}
	adapter.Queue("123",
		testsupport.ScriptedResponse{Err: transient},
		testsupport.ScriptedResponse{Err: transient},
	)
	adapter.Queue("456", testsupport.ScriptedResponse{Record: fetchedRecord("mal", "456", "Bar", 2)})

	registry := providers.NewRegistry(cfg)
	registry.Register(adapter)

	controller := enrich.New(cfg, store, registry, nil)
	if _, err := controller.Run(context.Background(), enrich.StartOptions{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if calls := adapter.Calls("123"); calls != 2 {
		t.Fatalf("expected initial call plus one retry, got %d", calls)
	}

	last := controller.LastRun()
	if last.Failed != 1 {
		t.Fatalf("exhausted retries should record a failure: %+v", last)
	}
	// The failing item must not block the next one.
	if last.Processed != 2 || last.Updated != 1 {
		t.Fatalf("batch isolation broken: %+v", last)
	}
}

func TestFatalProviderErrorSkipsImmediately(t *testing.T) {
	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedEntity(t, store, "Foo", "mal", "123", 12)

	adapter := testsupport.NewScriptedAdapter("mal")
	adapter.Queue("123", testsupport.ScriptedResponse{
		Err: providers.Wrap(providers.ErrFatal, "mal", "fetch", "malformed payload", nil),
	})

	registry := providers.NewRegistry(cfg)
	registry.Register(adapter)

	controller := enrich.New(cfg, store, registry, nil)
	if _, err := controller.Run(context.Background(), enrich.StartOptions{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if calls := adapter.Calls("123"); calls != 1 {
		t.Fatalf("fatal errors must not retry, got %d calls", calls)
	}
	if last := controller.LastRun(); last.Failed != 1 {
		t.Fatalf("fatal error should record a failure: %+v", last)
	}
}

func TestWorklistSkipsEnrichedUnlessForced(t *testing.T) {
	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	entity := seedEntity(t, store, "Foo", "mal", "123", 12)
	if err := store.MarkEnriched(context.Background(), entity.ID, time.Now()); err != nil {
		t.Fatalf("MarkEnriched failed: %v", err)
	}

	adapter := testsupport.NewScriptedAdapter("mal")
	adapter.Queue("123", testsupport.ScriptedResponse{Record: fetchedRecord("mal", "123", "Foo", 12)})

	registry := providers.NewRegistry(cfg)
	registry.Register(adapter)

	controller := enrich.New(cfg, store, registry, nil)
	if _, err := controller.Run(context.Background(), enrich.StartOptions{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if calls := adapter.Calls("123"); calls != 0 {
		t.Fatalf("enriched entity should be skipped, got %d calls", calls)
	}

	if _, err := controller.Run(context.Background(), enrich.StartOptions{Force: true}); err != nil {
		t.Fatalf("forced Run failed: %v", err)
	}
	if calls := adapter.Calls("123"); calls != 1 {
		t.Fatalf("forced run should fetch, got %d calls", calls)
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	cfg := fastConfig(t)

	lock, err := enrich.AcquireLock(cfg)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			t.Errorf("unlock: %v", err)
		}
	}()

	if _, err := enrich.AcquireLock(cfg); !errors.Is(err, enrich.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}
