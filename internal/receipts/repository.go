package receipts

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

// Repository provides PostgreSQL backed persistence for receipts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return db.RunInTx(ctx, r.pool, fn)
}

// CreateReceipt inserts the header and all items.
func (r *Repository) CreateReceipt(ctx context.Context, receipt Receipt) (Receipt, error) {
	const header = `
		INSERT INTO receipts (doc_uuid, doc_number, kind, supplier, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	q := db.Conn(ctx, r.pool)
	err := q.QueryRow(ctx, header,
		receipt.DocUUID, receipt.Number, string(receipt.Kind), receipt.Supplier, string(receipt.Status),
	).Scan(&receipt.ID, &receipt.CreatedAt, &receipt.UpdatedAt)
	if err != nil {
		return Receipt{}, fmt.Errorf("receipts: insert header: %w", err)
	}

	const item = `
		INSERT INTO receipt_items (receipt_id, product_id, received_full, received_empty, received_defective)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	for i := range receipt.Items {
		receipt.Items[i].ReceiptID = receipt.ID
		err := q.QueryRow(ctx, item,
			receipt.ID, receipt.Items[i].ProductID,
			receipt.Items[i].ReceivedFull, receipt.Items[i].ReceivedEmpty, receipt.Items[i].ReceivedDefective,
		).Scan(&receipt.Items[i].ID)
		if err != nil {
			return Receipt{}, fmt.Errorf("receipts: insert item: %w", err)
		}
	}
	return receipt, nil
}

// GetReceipt loads a receipt with its items.
func (r *Repository) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	const query = `
		SELECT id, doc_uuid, doc_number, kind, supplier, status, posted_at, created_at, updated_at
		FROM receipts
		WHERE id = $1
	`
	q := db.Conn(ctx, r.pool)
	var receipt Receipt
	err := q.QueryRow(ctx, query, id).Scan(
		&receipt.ID, &receipt.DocUUID, &receipt.Number, &receipt.Kind, &receipt.Supplier,
		&receipt.Status, &receipt.PostedAt, &receipt.CreatedAt, &receipt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, ErrNotFound
		}
		return Receipt{}, fmt.Errorf("receipts: get header: %w", err)
	}

	const items = `
		SELECT id, receipt_id, product_id, received_full, received_empty, received_defective
		FROM receipt_items
		WHERE receipt_id = $1
		ORDER BY id
	`
	rows, err := q.Query(ctx, items, id)
	if err != nil {
		return Receipt{}, fmt.Errorf("receipts: get items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item ReceiptItem
		if err := rows.Scan(&item.ID, &item.ReceiptID, &item.ProductID,
			&item.ReceivedFull, &item.ReceivedEmpty, &item.ReceivedDefective); err != nil {
			return Receipt{}, fmt.Errorf("receipts: scan item: %w", err)
		}
		receipt.Items = append(receipt.Items, item)
	}
	return receipt, rows.Err()
}

// ListReceipts returns headers matching the filter, newest first.
func (r *Repository) ListReceipts(ctx context.Context, filter ListFilter) ([]Receipt, error) {
	query := `
		SELECT id, doc_uuid, doc_number, kind, supplier, status, posted_at, created_at, updated_at
		FROM receipts
	`
	var (
		conds []string
		args  []any
	)
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
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
		return nil, fmt.Errorf("receipts: list: %w", err)
	}
	defer rows.Close()

	var receipts []Receipt
	for rows.Next() {
		var receipt Receipt
		if err := rows.Scan(&receipt.ID, &receipt.DocUUID, &receipt.Number, &receipt.Kind,
			&receipt.Supplier, &receipt.Status, &receipt.PostedAt, &receipt.CreatedAt, &receipt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("receipts: scan header: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

// MarkPosted flips the document to POSTED exactly once. The guarded update
// also takes the row lock that serialises concurrent posting attempts.
func (r *Repository) MarkPosted(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE receipts
		SET status = 'POSTED', posted_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'DRAFT'
	`, id)
	if err != nil {
		return fmt.Errorf("receipts: mark posted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotDraft
	}
	return nil
}

// NextDocNumber generates the next human-readable number for the month.
func (r *Repository) NextDocNumber(ctx context.Context, kind Kind) (string, error) {
	var count int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*) FROM receipts
		WHERE kind = $1 AND date_trunc('month', created_at) = date_trunc('month', now())
	`, string(kind)).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("receipts: count for doc number: %w", err)
	}
	prefix := "GRN"
	if kind == KindInvoice {
		prefix = "INV"
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, time.Now().UTC().Format("200601"), count+1), nil
}
