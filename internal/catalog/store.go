package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates the requested product could not be located.
var ErrNotFound = errors.New("product not found")

// Product is a catalog entry joined with its tax rate.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Barcode       *string         `json:"barcode,omitempty"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	Stock         int             `json:"stock"`
	TaxRateID     uuid.UUID       `json:"taxRateId"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ProductInput captures payload for creating or updating a product.
type ProductInput struct {
	Name          string
	Barcode       *string
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
	Stock         int
	TaxRateID     uuid.UUID
}

// Store defines the persistence operations the catalog needs. Stock is only
// ever mutated through DecrementStock; CheckStock is the read-only counterpart.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (Product, error)
	FindByBarcode(ctx context.Context, barcode string) (Product, error)
	Search(ctx context.Context, query string, limit int) ([]Product, error)
	CheckStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	Create(ctx context.Context, input ProductInput) (Product, error)
	Update(ctx context.Context, id uuid.UUID, input ProductInput) (Product, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

const productColumns = `p.id, p.name, p.barcode, p.purchase_price, p.sale_price, p.stock,
	p.tax_rate_id, t.rate, p.active, p.created_at`

func (s PostgresStore) scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Barcode, &p.PurchasePrice, &p.SalePrice, &p.Stock,
		&p.TaxRateID, &p.TaxRate, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// FindByID returns an active product by id.
func (s PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Product, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products p
		JOIN tax_rates t ON p.tax_rate_id = t.id
		WHERE p.id = $1 AND p.active`, id)
	return s.scanProduct(row)
}

// FindByBarcode returns an active product by barcode.
func (s PostgresStore) FindByBarcode(ctx context.Context, barcode string) (Product, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products p
		JOIN tax_rates t ON p.tax_rate_id = t.id
		WHERE p.barcode = $1 AND p.active`, barcode)
	return s.scanProduct(row)
}

// Search returns active products matching the query on name or barcode,
// ordered by name. An empty query lists everything up to the limit.
func (s PostgresStore) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.Pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products p
		JOIN tax_rates t ON p.tax_rate_id = t.id
		WHERE p.active AND (p.name ILIKE $1 OR p.barcode ILIKE $1)
		ORDER BY p.name
		LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := s.scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CheckStock reports whether an active product currently holds at least qty
// units. An unknown or inactive product counts as out of stock.
func (s PostgresStore) CheckStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	var ok bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM products WHERE id = $1 AND active AND stock >= $2
		)`, id, qty).Scan(&ok)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// DecrementStock atomically reduces stock by qty, only when enough stock
// remains at decrement time. Returns false when the condition fails.
func (s PostgresStore) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Create inserts a new active product.
func (s PostgresStore) Create(ctx context.Context, input ProductInput) (Product, error) {
	row := s.Pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO products (name, barcode, purchase_price, sale_price, stock, tax_rate_id, active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			RETURNING *
		)
		SELECT `+strings.ReplaceAll(productColumns, "p.", "inserted.")+`
		FROM inserted JOIN tax_rates t ON inserted.tax_rate_id = t.id`,
		input.Name, input.Barcode, input.PurchasePrice, input.SalePrice, input.Stock, input.TaxRateID)
	return s.scanProduct(row)
}

// Update replaces the editable fields of a product.
func (s PostgresStore) Update(ctx context.Context, id uuid.UUID, input ProductInput) (Product, error) {
	row := s.Pool.QueryRow(ctx, `
		WITH updated AS (
			UPDATE products
			SET name = $2, barcode = $3, purchase_price = $4, sale_price = $5, stock = $6, tax_rate_id = $7
			WHERE id = $1 AND active
			RETURNING *
		)
		SELECT `+strings.ReplaceAll(productColumns, "p.", "updated.")+`
		FROM updated JOIN tax_rates t ON updated.tax_rate_id = t.id`,
		id, input.Name, input.Barcode, input.PurchasePrice, input.SalePrice, input.Stock, input.TaxRateID)
	return s.scanProduct(row)
}

// Deactivate soft-deletes a product so past sales keep their reference.
func (s PostgresStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE products SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
