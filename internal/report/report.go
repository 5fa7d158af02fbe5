package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"collate/internal/reconcile"
)

// Item is one worklist entry's outcome.
type Item struct {
	EntityID int64                   `json:"entity_id"`
	Label    string                  `json:"label"`
	Provider string                  `json:"provider,omitempty"`
	Changes  []reconcile.FieldChange `json:"changes,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// Summary is the terminal count block of a run.
type Summary struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// RunReport is the persisted artifact of one enrichment run.
type RunReport struct {
	Token      string     `json:"token"`
	State      string     `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Summary    Summary    `json:"summary"`
	Created    []Item     `json:"created,omitempty"`
	Updated    []Item     `json:"updated,omitempty"`
	Failed     []Item     `json:"failed,omitempty"`
}

// Emitter collects outcomes for one run. Safe for the single-writer job
// loop plus concurrent status reads.
type Emitter struct {
	dir string

	mu     sync.Mutex
	report RunReport
}

// NewEmitter starts an empty report for the given run token. dir is where
// Flush writes the artifact.
func NewEmitter(dir, token string, startedAt time.Time) *Emitter {
	return &Emitter{
		dir: dir,
		report: RunReport{
			Token:     token,
			StartedAt: startedAt.UTC(),
		},
	}
}

// RecordCreated notes a record that produced a new entity.
func (e *Emitter) RecordCreated(item Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.report.Created = append(e.report.Created, item)
	e.report.Summary.Created++
	e.report.Summary.Processed++
}

// RecordUpdated notes a record that changed an existing entity.
func (e *Emitter) RecordUpdated(item Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.report.Updated = append(e.report.Updated, item)
	e.report.Summary.Updated++
	e.report.Summary.Processed++
}

// RecordSkipped notes an item that produced no change.
func (e *Emitter) RecordSkipped() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.report.Summary.Skipped++
	e.report.Summary.Processed++
}

// RecordFailure notes an item that errored. The run continues; the item
// does not.
func (e *Emitter) RecordFailure(item Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.report.Failed = append(e.report.Failed, item)
	e.report.Summary.Failed++
	e.report.Summary.Processed++
}

// Summary returns the current counts.
func (e *Emitter) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report.Summary
}

// Snapshot returns a copy of the report so far.
func (e *Emitter) Snapshot() RunReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := e.report
	snapshot.Created = append([]Item(nil), e.report.Created...)
	snapshot.Updated = append([]Item(nil), e.report.Updated...)
	snapshot.Failed = append([]Item(nil), e.report.Failed...)
	return snapshot
}

// Flush stamps the terminal state and writes the artifact to
// dir/run-<token>.json, returning the path.
func (e *Emitter) Flush(state string, finishedAt time.Time) (string, error) {
	e.mu.Lock()
	finished := finishedAt.UTC()
	e.report.State = state
	e.report.FinishedAt = &finished
	snapshot := e.report
	e.mu.Unlock()

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	path := filepath.Join(e.dir, "run-"+snapshot.Token+".json")
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
