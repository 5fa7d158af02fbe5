package enrich

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"

	"collate/internal/config"
)

// ErrLocked means another collate process holds the enrichment lock.
var ErrLocked = errors.New("another collate instance is already running")

// AcquireLock takes the cross-process single-instance lock. The in-process
// controller already rejects concurrent runs; the file lock extends that
// guarantee across processes sharing one data directory. Callers must
// Unlock when done.
func AcquireLock(cfg *config.Config) (*flock.Flock, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", cfg.LockPath(), err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return lock, nil
}
