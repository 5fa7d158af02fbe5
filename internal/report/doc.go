// Package report accumulates per-item outcomes during an enrichment run
// and writes the persisted run artifact: created/updated/failed item
// lists with per-field before/after diffs.
package report
