package customer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seekweb/pos-api/internal/common"
)

// ErrNotFound indicates the requested customer could not be located.
var ErrNotFound = errors.New("customer not found")

// Customer is a registered shopper. CardCode is the loyalty card scanned at
// the register; points accrue per committed sale.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CardCode  *string   `json:"cardCode,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input captures payload for creating or updating a customer.
type Input struct {
	Name     string  `json:"name" validate:"required"`
	CardCode *string `json:"cardCode"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// Store reads and writes customers in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

const columns = `id, name, card_code, phone, email, points, created_at`

func scan(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.CardCode, &c.Phone, &c.Email, &c.Points, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

// FindByID returns a customer by id.
func (s Store) FindByID(ctx context.Context, id uuid.UUID) (Customer, error) {
	return scan(s.Pool.QueryRow(ctx, `SELECT `+columns+` FROM customers WHERE id = $1`, id))
}

// FindByCard returns a customer by loyalty card code.
func (s Store) FindByCard(ctx context.Context, cardCode string) (Customer, error) {
	return scan(s.Pool.QueryRow(ctx, `SELECT `+columns+` FROM customers WHERE card_code = $1`, cardCode))
}

// Exists reports whether a customer id is known.
func (s Store) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var one int
	err := s.Pool.QueryRow(ctx, `SELECT 1 FROM customers WHERE id = $1`, id).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Search lists customers by name or card code fragment.
func (s Store) Search(ctx context.Context, query string, limit int) ([]Customer, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.Pool.Query(ctx, `
		SELECT `+columns+` FROM customers
		WHERE name ILIKE $1 OR card_code ILIKE $1
		ORDER BY name LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a new customer.
func (s Store) Create(ctx context.Context, in Input) (Customer, error) {
	return scan(s.Pool.QueryRow(ctx, `
		INSERT INTO customers (name, card_code, phone, email)
		VALUES ($1, $2, $3, $4)
		RETURNING `+columns, in.Name, in.CardCode, in.Phone, in.Email))
}

// Update replaces the editable fields of a customer.
func (s Store) Update(ctx context.Context, id uuid.UUID, in Input) (Customer, error) {
	return scan(s.Pool.QueryRow(ctx, `
		UPDATE customers SET name = $2, card_code = $3, phone = $4, email = $5
		WHERE id = $1
		RETURNING `+columns, id, in.Name, in.CardCode, in.Phone, in.Email))
}

// AddPoints accrues loyalty points on a customer.
func (s Store) AddPoints(ctx context.Context, id uuid.UUID, points int) error {
	if points <= 0 {
		return nil
	}
	_, err := s.Pool.Exec(ctx, `UPDATE customers SET points = points + $2 WHERE id = $1`, id, points)
	return err
}

// WrapNotFound converts the store sentinel into the API error shape.
func WrapNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NewAppError("CUSTOMER_NOT_FOUND", "customer not found", http.StatusNotFound, err)
	}
	return err
}
