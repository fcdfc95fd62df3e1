package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run identifier is unknown.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, task_name, num_parts, part_index, total, started_at, finished_at, stopped`

// StartRun records a new run and returns it with a fresh identifier.
func (s *Store) StartRun(ctx context.Context, spec RunSpec) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		TaskName:  spec.TaskName,
		NumParts:  spec.NumParts,
		PartIndex: spec.PartIndex,
		Total:     spec.Total,
		StartedAt: time.Now().UTC(),
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, task_name, num_parts, part_index, total, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.TaskName, run.NumParts, run.PartIndex, run.Total, formatTime(run.StartedAt),
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the end of a run. stopped marks a run that ended on the
// stop sentinel or cancellation before exhausting its partition.
func (s *Store) FinishRun(ctx context.Context, runID string, stopped bool) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, stopped = ? WHERE id = ?`,
		formatTime(time.Now()), boolToInt(stopped), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Enumerate records every item of the partition as enumerated in a single
// transaction.
func (s *Store) Enumerate(ctx context.Context, runID string, items map[string]string) error {
	if len(items) == 0 {
		return nil
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin enumerate tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO items (run_id, item_id, source_path, status, updated_at)
             VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare enumerate: %w", err)
		}
		defer stmt.Close()

		now := formatTime(time.Now())
		for itemID, source := range items {
			if _, err := stmt.ExecContext(ctx, runID, itemID, source, StatusEnumerated, now); err != nil {
				return fmt.Errorf("enumerate %s: %w", itemID, err)
			}
		}
		return tx.Commit()
	})
}

// Record stores the latest status of an item within a run. reason is kept
// for skipped, rejected, and failed items.
func (s *Store) Record(ctx context.Context, runID, itemID, source string, status Status, reason string) error {
	if !status.Valid() {
		return fmt.Errorf("record %s: unknown status %q", itemID, status)
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO items (run_id, item_id, source_path, status, reason, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (run_id, item_id) DO UPDATE SET
             status = excluded.status,
             reason = excluded.reason,
             updated_at = excluded.updated_at`,
		runID, itemID, source, status, nullableString(reason), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", itemID, err)
	}
	return nil
}

// GetRun fetches a run by identifier.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Counts returns the number of items per status for a run. Every known
// status is present in the result.
func (s *Store) Counts(ctx context.Context, runID string) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM items WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(AllStatuses))
	for _, status := range AllStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// Items lists the items of a run, optionally filtered by status, ordered by
// item identifier.
func (s *Store) Items(ctx context.Context, runID string, statuses ...Status) ([]Item, error) {
	query := `SELECT run_id, item_id, source_path, status, reason, updated_at FROM items WHERE run_id = ?`
	args := []any{runID}
	if len(statuses) > 0 {
		query += ` AND status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY item_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item      Item
			status    string
			reason    sql.NullString
			updatedAt string
		)
		if err := rows.Scan(&item.RunID, &item.ItemID, &item.SourcePath, &status, &reason, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.Status = Status(status)
		item.Reason = reason.String
		if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at for %s: %w", item.ItemID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// LatestRuns returns the most recent run of every partition of a
// num_parts split, ordered by partition index. numParts <= 0 returns the
// latest run of every partition of every split.
func (s *Store) LatestRuns(ctx context.Context, numParts int) ([]RunReport, error) {
	query := `SELECT ` + runColumns + ` FROM runs r
        WHERE r.id = (
            SELECT id FROM runs
            WHERE num_parts = r.num_parts AND part_index = r.part_index
            ORDER BY started_at DESC, rowid DESC LIMIT 1
        )`
	var args []any
	if numParts > 0 {
		query += ` AND r.num_parts = ?`
		args = append(args, numParts)
	}
	query += ` ORDER BY r.num_parts, r.part_index`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	reports := make([]RunReport, 0, len(runs))
	for _, run := range runs {
		counts, err := s.Counts(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, RunReport{Run: run, Counts: counts})
	}
	return reports, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
		stopped    int
	)
	if err := scanner.Scan(
		&run.ID, &run.TaskName, &run.NumParts, &run.PartIndex, &run.Total,
		&startedAt, &finishedAt, &stopped,
	); err != nil {
		return nil, err
	}
	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &t
	}
	run.Stopped = stopped != 0
	return &run, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	out := make([]byte, 0, count*2-1)
	for i := 0; i < count; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
}
