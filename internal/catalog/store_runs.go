package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunRecord is the persisted outcome of one enrichment run.
type RunRecord struct {
	Token      string
	State      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Processed  int
	Updated    int
	Skipped    int
	Failed     int
	ReportPath string
}

// RecordRun upserts a run's terminal state.
func (s *Store) RecordRun(ctx context.Context, record RunRecord) error {
	_, err := s.execWithRetry(ctx, `INSERT INTO runs (
        token, state, started_at, finished_at, processed, updated, skipped, failed, report_path
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(token) DO UPDATE SET
        state = excluded.state,
        finished_at = excluded.finished_at,
        processed = excluded.processed,
        updated = excluded.updated,
        skipped = excluded.skipped,
        failed = excluded.failed,
        report_path = excluded.report_path`,
		record.Token,
		record.State,
		record.StartedAt.UTC().Format(time.RFC3339Nano),
		formatTimePtr(record.FinishedAt),
		record.Processed,
		record.Updated,
		record.Skipped,
		record.Failed,
		record.ReportPath,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns returns run history, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT token, state, started_at, finished_at, processed, updated, skipped, failed, report_path
        FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			record      RunRecord
			startedRaw  sql.NullString
			finishedRaw sql.NullString
			reportPath  sql.NullString
		)
		if err := rows.Scan(
			&record.Token,
			&record.State,
			&startedRaw,
			&finishedRaw,
			&record.Processed,
			&record.Updated,
			&record.Skipped,
			&record.Failed,
			&reportPath,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if ts := parseTimePtr(startedRaw); ts != nil {
			record.StartedAt = *ts
		}
		record.FinishedAt = parseTimePtr(finishedRaw)
		record.ReportPath = reportPath.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}
