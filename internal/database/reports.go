package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type GetSalesSummaryParams struct {
	From time.Time
	To   time.Time
}

type GetSalesSummaryRow struct {
	TotalOrders    int64
	TotalRevenue   pgtype.Numeric
	TotalItemsSold int64
	AvgOrderValue  pgtype.Numeric
}

// GetSalesSummary aggregates settled orders only. Refunded and open
// orders never count toward revenue.
const getSalesSummary = `
SELECT
	COUNT(*) AS total_orders,
	COALESCE(SUM(o.total_amount), 0) AS total_revenue,
	COALESCE(SUM(items.sold), 0) AS total_items_sold,
	COALESCE(AVG(o.total_amount), 0) AS avg_order_value
FROM orders o
LEFT JOIN LATERAL (
	SELECT SUM(quantity) AS sold
	FROM order_items
	WHERE order_id = o.id AND status <> 'CANCELLED'
) items ON true
WHERE o.payment_status = 'PAID'
  AND o.submitted_at >= $1 AND o.submitted_at < $2`

func (q *Queries) GetSalesSummary(ctx context.Context, arg GetSalesSummaryParams) (GetSalesSummaryRow, error) {
	var r GetSalesSummaryRow
	err := q.db.QueryRow(ctx, getSalesSummary, arg.From, arg.To).Scan(
		&r.TotalOrders,
		&r.TotalRevenue,
		&r.TotalItemsSold,
		&r.AvgOrderValue,
	)
	return r, err
}

type GetDailySalesParams struct {
	From time.Time
	To   time.Time
}

type GetDailySalesRow struct {
	Day          time.Time
	TotalOrders  int64
	TotalRevenue pgtype.Numeric
}

const getDailySales = `
SELECT
	date_trunc('day', submitted_at) AS day,
	COUNT(*) AS total_orders,
	COALESCE(SUM(total_amount), 0) AS total_revenue
FROM orders
WHERE payment_status = 'PAID'
  AND submitted_at >= $1 AND submitted_at < $2
GROUP BY 1
ORDER BY 1`

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []GetDailySalesRow
	for rows.Next() {
		var r GetDailySalesRow
		if err := rows.Scan(&r.Day, &r.TotalOrders, &r.TotalRevenue); err != nil {
			return nil, err
		}
		days = append(days, r)
	}
	return days, rows.Err()
}

type GetPopularItemsParams struct {
	From  time.Time
	To    time.Time
	Limit int32
}

type GetPopularItemsRow struct {
	ItemName     string
	TotalSold    int64
	TotalRevenue pgtype.Numeric
}

// GetPopularItems ranks by units sold over settled orders, using the
// item_name snapshot so renamed menu items still report correctly.
const getPopularItems = `
SELECT
	oi.item_name,
	SUM(oi.quantity) AS total_sold,
	COALESCE(SUM(oi.subtotal), 0) AS total_revenue
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.payment_status = 'PAID'
  AND oi.status <> 'CANCELLED'
  AND o.submitted_at >= $1 AND o.submitted_at < $2
GROUP BY oi.item_name
ORDER BY total_sold DESC, total_revenue DESC
LIMIT $3`

func (q *Queries) GetPopularItems(ctx context.Context, arg GetPopularItemsParams) ([]GetPopularItemsRow, error) {
	rows, err := q.db.Query(ctx, getPopularItems, arg.From, arg.To, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GetPopularItemsRow
	for rows.Next() {
		var r GetPopularItemsRow
		if err := rows.Scan(&r.ItemName, &r.TotalSold, &r.TotalRevenue); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

type GetHourlySalesParams struct {
	From time.Time
	To   time.Time
}

type GetHourlySalesRow struct {
	Hour         int32
	TotalOrders  int64
	TotalRevenue pgtype.Numeric
}

const getHourlySales = `
SELECT
	EXTRACT(HOUR FROM submitted_at)::int AS hour,
	COUNT(*) AS total_orders,
	COALESCE(SUM(total_amount), 0) AS total_revenue
FROM orders
WHERE payment_status = 'PAID'
  AND submitted_at >= $1 AND submitted_at < $2
GROUP BY 1
ORDER BY 1`

func (q *Queries) GetHourlySales(ctx context.Context, arg GetHourlySalesParams) ([]GetHourlySalesRow, error) {
	rows, err := q.db.Query(ctx, getHourlySales, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []GetHourlySalesRow
	for rows.Next() {
		var r GetHourlySalesRow
		if err := rows.Scan(&r.Hour, &r.TotalOrders, &r.TotalRevenue); err != nil {
			return nil, err
		}
		hours = append(hours, r)
	}
	return hours, rows.Err()
}

type GetPaymentMethodBreakdownParams struct {
	From time.Time
	To   time.Time
}

type GetPaymentMethodBreakdownRow struct {
	PaymentMethod string
	TotalPayments int64
	TotalAmount   pgtype.Numeric
}

const getPaymentMethodBreakdown = `
SELECT
	payment_method,
	COUNT(*) AS total_payments,
	COALESCE(SUM(amount), 0) AS total_amount
FROM payments
WHERE payment_status = 'COMPLETED'
  AND processed_at >= $1 AND processed_at < $2
GROUP BY payment_method
ORDER BY total_amount DESC`

func (q *Queries) GetPaymentMethodBreakdown(ctx context.Context, arg GetPaymentMethodBreakdownParams) ([]GetPaymentMethodBreakdownRow, error) {
	rows, err := q.db.Query(ctx, getPaymentMethodBreakdown, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []GetPaymentMethodBreakdownRow
	for rows.Next() {
		var r GetPaymentMethodBreakdownRow
		if err := rows.Scan(&r.PaymentMethod, &r.TotalPayments, &r.TotalAmount); err != nil {
			return nil, err
		}
		methods = append(methods, r)
	}
	return methods, rows.Err()
}
