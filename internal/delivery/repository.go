package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasflow-erp/gasflow/internal/platform/db"
)

// Repository persists delivery runs in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed delivery repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a transaction carried on the context.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return db.RunInTx(ctx, r.pool, fn)
}

// CreateRun inserts a run.
func (r *Repository) CreateRun(ctx context.Context, run Run) (Run, error) {
	query := `
		INSERT INTO delivery_runs (run_number, staff_id, run_date, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query,
		run.Number, run.StaffID, run.Date, string(run.Status),
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("insert delivery run: %w", err)
	}
	return run, nil
}

// GetRun fetches one run by id.
func (r *Repository) GetRun(ctx context.Context, id int64) (Run, error) {
	query := `
		SELECT id, run_number, staff_id, run_date, status, created_at, updated_at
		FROM delivery_runs
		WHERE id = $1`
	var run Run
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Number, &run.StaffID, &run.Date, &run.Status, &run.CreatedAt, &run.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get delivery run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs matching the filter, newest first.
func (r *Repository) ListRuns(ctx context.Context, filter ListRunsFilter) ([]Run, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.StaffID != 0 {
		add("staff_id = $%d", filter.StaffID)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if !filter.From.IsZero() {
		add("run_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("run_date < $%d", filter.To)
	}

	query := `
		SELECT id, run_number, staff_id, run_date, status, created_at, updated_at
		FROM delivery_runs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY run_date DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list delivery runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Number, &run.StaffID, &run.Date, &run.Status, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// UpdateRunStatus flips the run status only when the current status matches
// from. Zero affected rows means another writer got there first.
func (r *Repository) UpdateRunStatus(ctx context.Context, id int64, from, to RunStatus) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE delivery_runs
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		string(to), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %d is no longer %s: %w", id, from, ErrRunNotOpen)
	}
	return nil
}

// NextRunNumber produces a monthly sequential run number like
// RUN-202608-0001. Concurrent callers may collide on the UNIQUE constraint;
// the caller retries.
func (r *Repository) NextRunNumber(ctx context.Context, date time.Time) (string, error) {
	var count int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT count(*) FROM delivery_runs
		WHERE date_trunc('month', run_date) = date_trunc('month', $1::date)`,
		date,
	).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("count runs: %w", err)
	}
	return fmt.Sprintf("RUN-%s-%04d", date.Format("200601"), count+1), nil
}

// InsertLoad inserts a load header and its items.
func (r *Repository) InsertLoad(ctx context.Context, load Load) (Load, error) {
	conn := db.Conn(ctx, r.pool)
	err := conn.QueryRow(ctx, `
		INSERT INTO delivery_loads (run_id, posted_at)
		VALUES ($1, $2)
		RETURNING id`,
		load.RunID, load.PostedAt,
	).Scan(&load.ID)
	if err != nil {
		return Load{}, fmt.Errorf("insert load: %w", err)
	}
	for i := range load.Items {
		item := &load.Items[i]
		item.LoadID = load.ID
		err := conn.QueryRow(ctx, `
			INSERT INTO delivery_load_items (load_id, product_id, qty)
			VALUES ($1, $2, $3)
			RETURNING id`,
			item.LoadID, item.ProductID, item.Qty,
		).Scan(&item.ID)
		if err != nil {
			return Load{}, fmt.Errorf("insert load item: %w", err)
		}
	}
	return load, nil
}

// ListLoads returns a run's loads with their items.
func (r *Repository) ListLoads(ctx context.Context, runID int64) ([]Load, error) {
	conn := db.Conn(ctx, r.pool)
	rows, err := conn.Query(ctx, `
		SELECT id, run_id, posted_at
		FROM delivery_loads
		WHERE run_id = $1
		ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list loads: %w", err)
	}
	defer rows.Close()

	var loads []Load
	byID := map[int64]int{}
	for rows.Next() {
		var load Load
		if err := rows.Scan(&load.ID, &load.RunID, &load.PostedAt); err != nil {
			return nil, fmt.Errorf("scan load: %w", err)
		}
		byID[load.ID] = len(loads)
		loads = append(loads, load)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(loads) == 0 {
		return nil, nil
	}

	itemRows, err := conn.Query(ctx, `
		SELECT li.id, li.load_id, li.product_id, li.qty
		FROM delivery_load_items li
		JOIN delivery_loads l ON l.id = li.load_id
		WHERE l.run_id = $1
		ORDER BY li.id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list load items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item LoadItem
		if err := itemRows.Scan(&item.ID, &item.LoadID, &item.ProductID, &item.Qty); err != nil {
			return nil, fmt.Errorf("scan load item: %w", err)
		}
		if idx, ok := byID[item.LoadID]; ok {
			loads[idx].Items = append(loads[idx].Items, item)
		}
	}
	return loads, itemRows.Err()
}

// InsertSummary inserts a summary header and its items. The UNIQUE run_id
// constraint rejects a second summary for the same run.
func (r *Repository) InsertSummary(ctx context.Context, summary Summary) (Summary, error) {
	conn := db.Conn(ctx, r.pool)
	err := conn.QueryRow(ctx, `
		INSERT INTO delivery_summaries (run_id, posted_at)
		VALUES ($1, $2)
		RETURNING id`,
		summary.RunID, summary.PostedAt,
	).Scan(&summary.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("insert summary: %w", err)
	}
	for i := range summary.Items {
		item := &summary.Items[i]
		item.SummaryID = summary.ID
		err := conn.QueryRow(ctx, `
			INSERT INTO delivery_summary_items
				(summary_id, product_id, total_full_delivered, total_empty_collected, total_unsold_full, total_defective)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			item.SummaryID, item.ProductID, item.TotalFullDelivered,
			item.TotalEmptyCollected, item.TotalUnsoldFull, item.TotalDefective,
		).Scan(&item.ID)
		if err != nil {
			return Summary{}, fmt.Errorf("insert summary item: %w", err)
		}
	}
	return summary, nil
}

// GetSummary fetches the run's summary with its items.
func (r *Repository) GetSummary(ctx context.Context, runID int64) (Summary, error) {
	conn := db.Conn(ctx, r.pool)
	var summary Summary
	err := conn.QueryRow(ctx, `
		SELECT id, run_id, posted_at
		FROM delivery_summaries
		WHERE run_id = $1`,
		runID,
	).Scan(&summary.ID, &summary.RunID, &summary.PostedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Summary{}, ErrNoSummary
	}
	if err != nil {
		return Summary{}, fmt.Errorf("get summary: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT id, summary_id, product_id, total_full_delivered, total_empty_collected, total_unsold_full, total_defective
		FROM delivery_summary_items
		WHERE summary_id = $1
		ORDER BY id`,
		summary.ID,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("list summary items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item SummaryItem
		err := rows.Scan(&item.ID, &item.SummaryID, &item.ProductID,
			&item.TotalFullDelivered, &item.TotalEmptyCollected, &item.TotalUnsoldFull, &item.TotalDefective)
		if err != nil {
			return Summary{}, fmt.Errorf("scan summary item: %w", err)
		}
		summary.Items = append(summary.Items, item)
	}
	return summary, rows.Err()
}

// InsertRecord inserts one delivery record.
func (r *Repository) InsertRecord(ctx context.Context, record Record) (Record, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO delivery_records
			(run_id, consumer_id, product_id, qty_full_delivered, qty_empty_collected, qty_pending_empty, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		record.RunID, record.ConsumerID, record.ProductID,
		record.QtyFullDelivered, record.QtyEmptyCollected, record.QtyPendingEmpty, record.Note,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("insert delivery record: %w", err)
	}
	return record, nil
}

// ListRecords returns a run's records in insertion order.
func (r *Repository) ListRecords(ctx context.Context, runID int64) ([]Record, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, run_id, consumer_id, product_id, qty_full_delivered, qty_empty_collected, qty_pending_empty, note, created_at
		FROM delivery_records
		WHERE run_id = $1
		ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list delivery records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		err := rows.Scan(&rec.ID, &rec.RunID, &rec.ConsumerID, &rec.ProductID,
			&rec.QtyFullDelivered, &rec.QtyEmptyCollected, &rec.QtyPendingEmpty, &rec.Note, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan delivery record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
