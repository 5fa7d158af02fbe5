package testsupport

import (
	"testing"

	"collate/internal/catalog"
	"collate/internal/config"
)

// MustOpenStore opens a catalog store for the given config and closes it
// when the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}
