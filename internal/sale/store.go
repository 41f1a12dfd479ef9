package sale

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested sale could not be located.
var ErrNotFound = errors.New("sale not found")

// Tx writes the three parts of a sale inside one database transaction.
type Tx interface {
	InsertHeader(ctx context.Context, s Sale) error
	InsertLines(ctx context.Context, saleID uuid.UUID, lines []Line) error
	InsertPayments(ctx context.Context, saleID uuid.UUID, payments []Payment) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the persistence surface of the commit protocol. DeleteSale runs
// on its own connection so it works after a transaction is gone.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	DeleteSale(ctx context.Context, id uuid.UUID) error
	FindByNumber(ctx context.Context, number string) (Record, error)
	ListRecent(ctx context.Context, limit int) ([]Sale, error)
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

type postgresTx struct {
	tx pgx.Tx
}

// Begin opens a sale transaction.
func (s PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return postgresTx{tx: tx}, nil
}

func (t postgresTx) InsertHeader(ctx context.Context, s Sale) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sales (id, number, register_id, operator_id, customer_id, status,
			subtotal, tax, total, paid, change, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.Number, s.RegisterID, s.OperatorID, s.CustomerID, s.Status,
		s.Subtotal, s.Tax, s.Total, s.Paid, s.Change, s.CreatedAt)
	return err
}

func (t postgresTx) InsertLines(ctx context.Context, saleID uuid.UUID, lines []Line) error {
	for _, l := range lines {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO sale_items (sale_id, product_id, name, unit_price, tax_rate, qty, discount, subtotal, tax, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			saleID, l.ProductID, l.Name, l.UnitPrice, l.TaxRate, l.Qty, l.Discount, l.Subtotal, l.Tax, l.Total)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t postgresTx) InsertPayments(ctx context.Context, saleID uuid.UUID, payments []Payment) error {
	for _, p := range payments {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO sale_payments (sale_id, method_id, method_code, amount, change, reference)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			saleID, p.MethodID, p.MethodCode, p.Amount, p.Change, p.Reference)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t postgresTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t postgresTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// DeleteSale removes every trace of a half-written sale: payments first,
// then lines, then the header, so no orphan rows can survive.
func (s PostgresStore) DeleteSale(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Pool.Exec(ctx, `DELETE FROM sale_payments WHERE sale_id = $1`, id); err != nil {
		return err
	}
	if _, err := s.Pool.Exec(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, id); err != nil {
		return err
	}
	_, err := s.Pool.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	return err
}

const saleColumns = `id, number, register_id, operator_id, customer_id, status,
	subtotal, tax, total, paid, change, created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	var createdAt time.Time
	err := row.Scan(&s.ID, &s.Number, &s.RegisterID, &s.OperatorID, &s.CustomerID, &s.Status,
		&s.Subtotal, &s.Tax, &s.Total, &s.Paid, &s.Change, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, err
	}
	s.CreatedAt = createdAt
	return s, nil
}

// FindByNumber loads a committed sale with its lines and payments.
func (s PostgresStore) FindByNumber(ctx context.Context, number string) (Record, error) {
	header, err := scanSale(s.Pool.QueryRow(ctx, `
		SELECT `+saleColumns+` FROM sales WHERE number = $1`, number))
	if err != nil {
		return Record{}, err
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT product_id, name, unit_price, tax_rate, qty, discount, subtotal, tax, total
		FROM sale_items WHERE sale_id = $1 ORDER BY name`, header.ID)
	if err != nil {
		return Record{}, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Name, &l.UnitPrice, &l.TaxRate, &l.Qty, &l.Discount, &l.Subtotal, &l.Tax, &l.Total); err != nil {
			return Record{}, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return Record{}, err
	}

	payRows, err := s.Pool.Query(ctx, `
		SELECT method_id, method_code, amount, change, reference
		FROM sale_payments WHERE sale_id = $1`, header.ID)
	if err != nil {
		return Record{}, err
	}
	defer payRows.Close()
	var payments []Payment
	for payRows.Next() {
		var p Payment
		if err := payRows.Scan(&p.MethodID, &p.MethodCode, &p.Amount, &p.Change, &p.Reference); err != nil {
			return Record{}, err
		}
		payments = append(payments, p)
	}
	if err := payRows.Err(); err != nil {
		return Record{}, err
	}

	return Record{Sale: header, Lines: lines, Payments: payments}, nil
}

// ListRecent returns the latest committed sales, newest first.
func (s PostgresStore) ListRecent(ctx context.Context, limit int) ([]Sale, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}
