package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasflow-erp/gasflow/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction carried
// on the context. Joins an ambient transaction when one is already open.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return db.RunInTx(ctx, r.pool, fn)
}

// GetCellForUpdate locks the cell row until the enclosing transaction ends.
func (r *Repository) GetCellForUpdate(ctx context.Context, productID int64, bucket Bucket, state State) (StockCell, error) {
	const query = `
		SELECT id, product_id, bucket_code, state_code, qty, updated_at
		FROM stock_cells
		WHERE product_id = $1 AND bucket_code = $2 AND state_code = $3
		FOR UPDATE
	`
	var cell StockCell
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query, productID, string(bucket), string(state)).Scan(
		&cell.ID, &cell.ProductID, &cell.Bucket, &cell.State, &cell.Qty, &cell.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockCell{}, ErrCellNotFound
		}
		return StockCell{}, fmt.Errorf("inventory: get cell: %w", err)
	}
	return cell, nil
}

// UpsertCell writes the cell quantity, creating the row on first increase.
func (r *Repository) UpsertCell(ctx context.Context, cell StockCell) (StockCell, error) {
	const query = `
		INSERT INTO stock_cells (product_id, bucket_code, state_code, qty, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (product_id, bucket_code, state_code)
		DO UPDATE SET qty = EXCLUDED.qty, updated_at = now()
		RETURNING id, product_id, bucket_code, state_code, qty, updated_at
	`
	var saved StockCell
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query,
		cell.ProductID, string(cell.Bucket), string(cell.State), cell.Qty,
	).Scan(&saved.ID, &saved.ProductID, &saved.Bucket, &saved.State, &saved.Qty, &saved.UpdatedAt)
	if err != nil {
		return StockCell{}, fmt.Errorf("inventory: upsert cell: %w", err)
	}
	return saved, nil
}

// InsertTransaction appends one ledger entry. Entries are never updated or
// deleted.
func (r *Repository) InsertTransaction(ctx context.Context, txn Transaction) (Transaction, error) {
	const query = `
		INSERT INTO stock_transactions
			(product_id, from_bucket, from_state, to_bucket, to_state, qty, txn_type, reference_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query,
		txn.ProductID,
		nullCode(string(txn.FromBucket)), nullCode(string(txn.FromState)),
		nullCode(string(txn.ToBucket)), nullCode(string(txn.ToState)),
		txn.Qty, string(txn.Type), txn.ReferenceID, txn.Note,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return Transaction{}, fmt.Errorf("inventory: insert transaction: %w", err)
	}
	return txn, nil
}

// ListCells returns the current snapshot, optionally filtered.
func (r *Repository) ListCells(ctx context.Context, filter SnapshotFilter) ([]StockCell, error) {
	query := `
		SELECT id, product_id, bucket_code, state_code, qty, updated_at
		FROM stock_cells
	`
	var (
		conds []string
		args  []any
	)
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		conds = append(conds, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.Bucket != "" {
		args = append(args, string(filter.Bucket))
		conds = append(conds, fmt.Sprintf("bucket_code = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY product_id, bucket_code, state_code"

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory: list cells: %w", err)
	}
	defer rows.Close()

	var cells []StockCell
	for rows.Next() {
		var cell StockCell
		if err := rows.Scan(&cell.ID, &cell.ProductID, &cell.Bucket, &cell.State, &cell.Qty, &cell.UpdatedAt); err != nil {
			return nil, fmt.Errorf("inventory: scan cell: %w", err)
		}
		cells = append(cells, cell)
	}
	return cells, rows.Err()
}

// ListTransactions returns log entries matching the filter, oldest first.
func (r *Repository) ListTransactions(ctx context.Context, filter LogFilter) ([]Transaction, error) {
	query := `
		SELECT id, product_id,
		       COALESCE(from_bucket, ''), COALESCE(from_state, ''),
		       COALESCE(to_bucket, ''), COALESCE(to_state, ''),
		       qty, txn_type, reference_id, note, created_at
		FROM stock_transactions
	`
	var (
		conds []string
		args  []any
	)
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		conds = append(conds, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		conds = append(conds, fmt.Sprintf("txn_type = ANY($%d)", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory: list transactions: %w", err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var txn Transaction
		if err := rows.Scan(
			&txn.ID, &txn.ProductID,
			&txn.FromBucket, &txn.FromState, &txn.ToBucket, &txn.ToState,
			&txn.Qty, &txn.Type, &txn.ReferenceID, &txn.Note, &txn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("inventory: scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// LoadLookups reads the bucket and state lookup tables.
func (r *Repository) LoadLookups(ctx context.Context) ([]LookupRow, []LookupRow, error) {
	buckets, err := r.listLookup(ctx, "stock_buckets")
	if err != nil {
		return nil, nil, err
	}
	states, err := r.listLookup(ctx, "stock_states")
	if err != nil {
		return nil, nil, err
	}
	return buckets, states, nil
}

func (r *Repository) listLookup(ctx context.Context, table string) ([]LookupRow, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, fmt.Sprintf("SELECT code, name FROM %s ORDER BY code", table))
	if err != nil {
		return nil, fmt.Errorf("inventory: list %s: %w", table, err)
	}
	defer rows.Close()

	var result []LookupRow
	for rows.Next() {
		var row LookupRow
		if err := rows.Scan(&row.Code, &row.Name); err != nil {
			return nil, fmt.Errorf("inventory: scan %s: %w", table, err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func nullCode(code string) *string {
	if code == "" {
		return nil
	}
	return &code
}
