package report

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresQuerier runs the report aggregations directly against the sales
// tables.
type PostgresQuerier struct {
	Pool *pgxpool.Pool
}

// SalesDailyRange aggregates committed sales per day in [from, to).
func (q PostgresQuerier) SalesDailyRange(ctx context.Context, from, to time.Time) ([]DailyRow, error) {
	rows, err := q.Pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day,
			COUNT(*) AS sales,
			COALESCE(SUM(subtotal), 0) AS subtotal,
			COALESCE(SUM(tax), 0) AS tax,
			COALESCE(SUM(total), 0) AS total
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY 1
		ORDER BY 1`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailyRow
	for rows.Next() {
		var r DailyRow
		if err := rows.Scan(&r.Day, &r.Sales, &r.Subtotal, &r.Tax, &r.Total); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TopProducts ranks products of the window by quantity sold.
func (q PostgresQuerier) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProductRow, error) {
	rows, err := q.Pool.Query(ctx, `
		SELECT i.product_id, i.name,
			SUM(i.qty)::int AS qty,
			COALESCE(SUM(i.total), 0) AS revenue
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		WHERE s.created_at >= $1 AND s.created_at < $2
		GROUP BY i.product_id, i.name
		ORDER BY qty DESC, revenue DESC
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TopProductRow
	for rows.Next() {
		var r TopProductRow
		if err := rows.Scan(&r.ProductID, &r.Name, &r.Qty, &r.Revenue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PaymentsByMethod totals tenders of the window per method code.
func (q PostgresQuerier) PaymentsByMethod(ctx context.Context, from, to time.Time) ([]MethodRow, error) {
	rows, err := q.Pool.Query(ctx, `
		SELECT p.method_code,
			COUNT(*)::int AS count,
			COALESCE(SUM(p.amount), 0) AS amount
		FROM sale_payments p
		JOIN sales s ON s.id = p.sale_id
		WHERE s.created_at >= $1 AND s.created_at < $2
		GROUP BY p.method_code
		ORDER BY amount DESC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MethodRow
	for rows.Next() {
		var r MethodRow
		if err := rows.Scan(&r.MethodCode, &r.Count, &r.Amount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
