package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vertextoedge/pagemirror/internal/domain"
)

// CreateRun inserts a new run
func (s *Store) CreateRun(run *domain.Run) error {
	query := `
		INSERT INTO runs (id, target_url, output_root, status, asset_count, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	status := run.Status
	if status == "" {
		status = domain.RunStatusRunning
	}

	_, err := s.db.Exec(query, run.ID, run.TargetURL, run.OutputRoot, status, run.AssetCount, run.StartedAt.UTC())
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("run %s: %w", run.ID, domain.ErrInvalidInput)
		}
		return err
	}

	run.Status = status
	return nil
}

// FinishRun stores the final state of a run
func (s *Store) FinishRun(run *domain.Run) error {
	query := `
		UPDATE runs
		SET status = ?, asset_count = ?, saved_count = ?, skipped_count = ?, failed_count = ?,
			bytes_written = ?, error = ?, finished_at = ?
		WHERE id = ?
	`

	var finishedAt sql.NullTime
	if run.FinishedAt != nil {
		finishedAt = sql.NullTime{Time: run.FinishedAt.UTC(), Valid: true}
	}

	res, err := s.db.Exec(query,
		run.Status, run.AssetCount, run.Summary.Saved, run.Summary.Skipped, run.Summary.Failed,
		run.Summary.Bytes, nullString(run.Error), finishedAt, run.ID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*domain.Run, error) {
	query := `
		SELECT id, target_url, output_root, status, asset_count, saved_count, skipped_count,
			   failed_count, bytes_written, error, started_at, finished_at
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return run, err
}

// ListRuns returns the most recent runs
func (s *Store) ListRuns(limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, target_url, output_root, status, asset_count, saved_count, skipped_count,
			   failed_count, bytes_written, error, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// FailStaleRuns marks runs left in the running state as failed
func (s *Store) FailStaleRuns(staleAfter time.Duration) (int, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-staleAfter)

	query := `
		UPDATE runs
		SET status = ?, error = ?, finished_at = ?
		WHERE status = ? AND started_at < ?
	`

	result, err := s.db.Exec(query, domain.RunStatusFailed, "interrupted", now, domain.RunStatusRunning, cutoff)
	if err != nil {
		return 0, err
	}

	count, err := result.RowsAffected()
	return int(count), err
}

// RecordResult stores one asset result of a run
func (s *Store) RecordResult(rec *domain.ResultRecord) error {
	query := `
		INSERT INTO results (run_id, idx, url, category, outcome, path, reason, status_code, bytes, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		rec.RunID, rec.Index, rec.URL, string(rec.Category), string(rec.Outcome),
		nullString(rec.Path), nullString(rec.Reason), rec.StatusCode, rec.Bytes,
		nullString(rec.Error), rec.DurationMs)
	if err != nil && isUniqueConstraintError(err) {
		return fmt.Errorf("result %d of run %s: %w", rec.Index, rec.RunID, domain.ErrInvalidInput)
	}
	return err
}

// ListResults returns the results of a run in submission order
func (s *Store) ListResults(runID string) ([]*domain.ResultRecord, error) {
	query := `
		SELECT run_id, idx, url, category, outcome, path, reason, status_code, bytes, error, duration_ms
		FROM results
		WHERE run_id = ?
		ORDER BY idx ASC
	`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ResultRecord
	for rows.Next() {
		rec := &domain.ResultRecord{}
		var category, outcome string
		var path, reason, errMsg sql.NullString

		if err := rows.Scan(
			&rec.RunID, &rec.Index, &rec.URL, &category, &outcome,
			&path, &reason, &rec.StatusCode, &rec.Bytes, &errMsg, &rec.DurationMs,
		); err != nil {
			return nil, err
		}

		rec.Category = domain.Category(category)
		rec.Outcome = domain.Outcome(outcome)
		rec.Path = path.String
		rec.Reason = reason.String
		rec.Error = errMsg.String
		records = append(records, rec)
	}

	return records, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRun scans a single run row
func scanRun(row rowScanner) (*domain.Run, error) {
	run := &domain.Run{}
	var errMsg sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(
		&run.ID, &run.TargetURL, &run.OutputRoot, &run.Status, &run.AssetCount,
		&run.Summary.Saved, &run.Summary.Skipped, &run.Summary.Failed, &run.Summary.Bytes,
		&errMsg, &run.StartedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Error = errMsg.String
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return run, nil
}
