package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// DailyRow is one day of sales activity.
type DailyRow struct {
	Day      time.Time       `json:"day"`
	Sales    int             `json:"sales"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// TopProductRow is one product ranked by quantity sold.
type TopProductRow struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// MethodRow aggregates payments by method.
type MethodRow struct {
	MethodCode string          `json:"methodCode"`
	Count      int             `json:"count"`
	Amount     decimal.Decimal `json:"amount"`
}

// Querier defines the database access required for reporting.
type Querier interface {
	SalesDailyRange(ctx context.Context, from, to time.Time) ([]DailyRow, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProductRow, error)
	PaymentsByMethod(ctx context.Context, from, to time.Time) ([]MethodRow, error)
}

// Service provides cached access to the sales reports. Reports run over
// committed sales only, so short-lived caching cannot hide anything but the
// newest few minutes.
type Service struct {
	Q           Querier
	R           *redis.Client
	TTL         time.Duration
	DefaultDays int
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts)+1)
	formatted = append(formatted, "report")
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// Range resolves a day count into [from, to) bounds ending now.
func (s *Service) Range(days int) (time.Time, time.Time) {
	if days <= 0 {
		days = s.DefaultDays
	}
	if days <= 0 {
		days = 7
	}
	to := s.now().UTC()
	from := to.AddDate(0, 0, -days)
	return from, to
}

// Daily returns per-day sales totals for the window.
func (s *Service) Daily(ctx context.Context, days int) ([]DailyRow, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("report service not configured")
	}
	from, to := s.Range(days)
	key := cacheKey("daily", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var rows []DailyRow
	if s.fromCache(ctx, key, &rows) {
		return rows, nil
	}
	rows, err := s.Q.SalesDailyRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// TopProducts returns the best sellers of the window ordered by quantity.
func (s *Service) TopProducts(ctx context.Context, days, limit int) ([]TopProductRow, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("report service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	from, to := s.Range(days)
	key := cacheKey("top", from.Format("2006-01-02"), to.Format("2006-01-02"), limit)
	var rows []TopProductRow
	if s.fromCache(ctx, key, &rows) {
		return rows, nil
	}
	rows, err := s.Q.TopProducts(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// PaymentMethods returns tender totals grouped by method for the window.
func (s *Service) PaymentMethods(ctx context.Context, days int) ([]MethodRow, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("report service not configured")
	}
	from, to := s.Range(days)
	key := cacheKey("methods", from.Format("2006-01-02"), to.Format("2006-01-02"))
	var rows []MethodRow
	if s.fromCache(ctx, key, &rows) {
		return rows, nil
	}
	rows, err := s.Q.PaymentsByMethod(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

func (s *Service) fromCache(ctx context.Context, key string, dst any) bool {
	if s.R == nil {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) store(ctx context.Context, key string, v any) {
	if s.R == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	_ = s.R.Set(ctx, key, data, ttl).Err()
}
