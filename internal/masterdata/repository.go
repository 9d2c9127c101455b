package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gasflow-erp/gasflow/internal/platform/db"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// Repository persists master data in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed master data repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func mapInsertErr(err error, context string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", context, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", context, err)
}

// CreateProduct inserts a product.
func (r *Repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO products (sku, name, capacity_kg)
		VALUES ($1, $2, $3)
		RETURNING id, active, created_at, updated_at`,
		p.SKU, p.Name, p.CapacityKg,
	).Scan(&p.ID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, mapInsertErr(err, "insert product")
	}
	return p, nil
}

// UpdateProduct updates mutable product fields.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (Product, error) {
	var p Product
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE products
		SET name = $1, capacity_kg = $2, active = $3, updated_at = now()
		WHERE id = $4
		RETURNING id, sku, name, capacity_kg, active, created_at, updated_at`,
		req.Name, req.CapacityKg, req.Active, id,
	).Scan(&p.ID, &p.SKU, &p.Name, &p.CapacityKg, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// GetProduct fetches one product.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, sku, name, capacity_kg, active, created_at, updated_at
		FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.SKU, &p.Name, &p.CapacityKg, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListProducts returns products ordered by sku.
func (r *Repository) ListProducts(ctx context.Context, page shared.Pagination) ([]Product, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, sku, name, capacity_kg, active, created_at, updated_at
		FROM products
		ORDER BY sku
		LIMIT $1 OFFSET $2`,
		page.PerPage, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.CapacityKg, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateConsumer inserts a consumer.
func (r *Repository) CreateConsumer(ctx context.Context, c Consumer) (Consumer, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO consumers (consumer_no, name, address, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		c.ConsumerNo, c.Name, c.Address, c.Phone,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Consumer{}, mapInsertErr(err, "insert consumer")
	}
	return c, nil
}

// GetConsumer fetches one consumer.
func (r *Repository) GetConsumer(ctx context.Context, id int64) (Consumer, error) {
	var c Consumer
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, consumer_no, name, address, phone, created_at, updated_at
		FROM consumers WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.ConsumerNo, &c.Name, &c.Address, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Consumer{}, ErrNotFound
	}
	if err != nil {
		return Consumer{}, fmt.Errorf("get consumer: %w", err)
	}
	return c, nil
}

// ListConsumers returns consumers ordered by consumer number.
func (r *Repository) ListConsumers(ctx context.Context, page shared.Pagination) ([]Consumer, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, consumer_no, name, address, phone, created_at, updated_at
		FROM consumers
		ORDER BY consumer_no
		LIMIT $1 OFFSET $2`,
		page.PerPage, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("list consumers: %w", err)
	}
	defer rows.Close()

	var out []Consumer
	for rows.Next() {
		var c Consumer
		if err := rows.Scan(&c.ID, &c.ConsumerNo, &c.Name, &c.Address, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan consumer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateConnection inserts a connection in ACTIVE status.
func (r *Repository) CreateConnection(ctx context.Context, c Connection) (Connection, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO connections (consumer_id, product_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		c.ConsumerID, c.ProductID, string(c.Status),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Connection{}, mapInsertErr(err, "insert connection")
	}
	return c, nil
}

// GetConnection fetches one connection.
func (r *Repository) GetConnection(ctx context.Context, id int64) (Connection, error) {
	var c Connection
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, consumer_id, product_id, status, created_at, updated_at
		FROM connections WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.ConsumerID, &c.ProductID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Connection{}, ErrNotFound
	}
	if err != nil {
		return Connection{}, fmt.Errorf("get connection: %w", err)
	}
	return c, nil
}

// ListConnections returns a consumer's connections.
func (r *Repository) ListConnections(ctx context.Context, consumerID int64) ([]Connection, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, consumer_id, product_id, status, created_at, updated_at
		FROM connections
		WHERE consumer_id = $1
		ORDER BY id`,
		consumerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var out []Connection
	for rows.Next() {
		var c Connection
		if err := rows.Scan(&c.ID, &c.ConsumerID, &c.ProductID, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateConnectionStatus sets a connection's status.
func (r *Repository) UpdateConnectionStatus(ctx context.Context, id int64, status ConnectionStatus) (Connection, error) {
	var c Connection
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE connections
		SET status = $1, updated_at = now()
		WHERE id = $2
		RETURNING id, consumer_id, product_id, status, created_at, updated_at`,
		string(status), id,
	).Scan(&c.ID, &c.ConsumerID, &c.ProductID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Connection{}, ErrNotFound
	}
	if err != nil {
		return Connection{}, fmt.Errorf("update connection status: %w", err)
	}
	return c, nil
}

// CreateStaff inserts a delivery person.
func (r *Repository) CreateStaff(ctx context.Context, s Staff) (Staff, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO delivery_staff (code, name, phone)
		VALUES ($1, $2, $3)
		RETURNING id, active, created_at`,
		s.Code, s.Name, s.Phone,
	).Scan(&s.ID, &s.Active, &s.CreatedAt)
	if err != nil {
		return Staff{}, mapInsertErr(err, "insert staff")
	}
	return s, nil
}

// ListStaff returns delivery staff ordered by code.
func (r *Repository) ListStaff(ctx context.Context, page shared.Pagination) ([]Staff, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, code, name, phone, active, created_at
		FROM delivery_staff
		ORDER BY code
		LIMIT $1 OFFSET $2`,
		page.PerPage, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		var s Staff
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Phone, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ProductNames returns id to name for all products, used when reports need
// display names.
func (r *Repository) ProductNames(ctx context.Context) (map[int64]string, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id, name FROM products`)
	if err != nil {
		return nil, fmt.Errorf("product names: %w", err)
	}
	defer rows.Close()

	names := map[int64]string{}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan product name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}
