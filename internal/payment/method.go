package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/seekweb/pos-api/internal/common"
)

// Method is a configured tender type. AllowsChange marks cash-like methods
// that may be tendered above the remaining balance.
type Method struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	AllowsChange bool      `json:"allowsChange"`
	Active       bool      `json:"active"`
}

// MethodStore reads payment methods from Postgres.
type MethodStore struct {
	Pool *pgxpool.Pool
}

// ListActive returns the active methods ordered by name.
func (s MethodStore) ListActive(ctx context.Context) ([]Method, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, code, name, allows_change, active FROM payment_methods
		WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Method
	for rows.Next() {
		var m Method
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.AllowsChange, &m.Active); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FindByCode returns an active method by its code.
func (s MethodStore) FindByCode(ctx context.Context, code string) (Method, error) {
	var m Method
	err := s.Pool.QueryRow(ctx, `
		SELECT id, code, name, allows_change, active FROM payment_methods
		WHERE code = $1 AND active`, strings.ToUpper(code)).
		Scan(&m.ID, &m.Code, &m.Name, &m.AllowsChange, &m.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Method{}, common.NewAppError("UNKNOWN_METHOD", "unknown payment method", http.StatusBadRequest, err)
		}
		return Method{}, err
	}
	return m, nil
}

type methodSource interface {
	ListActive(ctx context.Context) ([]Method, error)
	FindByCode(ctx context.Context, code string) (Method, error)
}

// Methods serves payment methods through a small in-process cache. The table
// changes rarely and every tender resolves a method, so a short TTL suffices.
type Methods struct {
	store    methodSource
	client   *redis.Client
	ttl      time.Duration
	cashCode string
}

// NewMethods constructs the cached method catalog.
func NewMethods(store methodSource, client *redis.Client, ttl time.Duration, cashCode string) *Methods {
	return &Methods{store: store, client: client, ttl: ttl, cashCode: strings.ToUpper(cashCode)}
}

// CashCode returns the configured cash method code.
func (m *Methods) CashCode() string { return m.cashCode }

// List returns the active methods, cached in Redis.
func (m *Methods) List(ctx context.Context) ([]Method, error) {
	const key = "payment:methods"
	if m.client != nil {
		if data, err := m.client.Get(ctx, key).Bytes(); err == nil {
			var cached []Method
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}
	methods, err := m.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if m.client != nil {
		if data, err := json.Marshal(methods); err == nil {
			_ = m.client.Set(ctx, key, data, m.ttl).Err()
		}
	}
	return methods, nil
}

// Resolve returns the active method with the given code. A code missing from
// the cached list still gets a direct lookup, so a method activated after the
// cache warmed resolves without waiting out the TTL.
func (m *Methods) Resolve(ctx context.Context, code string) (Method, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Method{}, common.NewAppError("VALIDATION", "payment method code is required", http.StatusBadRequest, nil)
	}
	methods, err := m.List(ctx)
	if err != nil {
		return Method{}, err
	}
	for _, method := range methods {
		if method.Code == code {
			return method, nil
		}
	}
	return m.store.FindByCode(ctx, code)
}

// IsCash reports whether a method may be tendered above the remaining
// balance. The allows_change flag decides; the configured cash code is the
// fallback for rows predating the flag.
func (m *Methods) IsCash(method Method) bool {
	return method.AllowsChange || method.Code == m.cashCode
}
