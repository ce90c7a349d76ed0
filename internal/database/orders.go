package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, table_id, customer_id, order_type, order_status, payment_status,
	subtotal, total_amount, special_instructions, submitted_at, preparing_at, ready_at, served_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.TableID,
		&o.CustomerID,
		&o.OrderType,
		&o.OrderStatus,
		&o.PaymentStatus,
		&o.Subtotal,
		&o.TotalAmount,
		&o.SpecialInstructions,
		&o.SubmittedAt,
		&o.PreparingAt,
		&o.ReadyAt,
		&o.ServedAt,
		&o.UpdatedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	OrderNumber         string
	TableID             pgtype.UUID
	CustomerID          pgtype.UUID
	OrderType           string
	OrderStatus         string
	PaymentStatus       string
	Subtotal            pgtype.Numeric
	TotalAmount         pgtype.Numeric
	SpecialInstructions pgtype.Text
}

const createOrder = `
INSERT INTO orders (order_number, table_id, customer_id, order_type, order_status, payment_status,
	subtotal, total_amount, special_instructions)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.TableID,
		arg.CustomerID,
		arg.OrderType,
		arg.OrderStatus,
		arg.PaymentStatus,
		arg.Subtotal,
		arg.TotalAmount,
		arg.SpecialInstructions,
	))
}

const getOrder = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

// GetOrderForUpdate locks the order row for the rest of the transaction.
// Serializes concurrent status derivations and payment inserts against
// the same order.
const getOrderForUpdate = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

// GetOpenOrderForUpdate finds the table's most recent open order and locks
// it. The lock (plus the transaction around the caller) closes the race
// where two concurrent submissions both see "no open order".
const getOpenOrderForUpdate = `
SELECT ` + orderColumns + `
FROM orders
WHERE table_id = $1 AND payment_status IN ('OUTSTANDING', 'PARTIALLY_PAID')
ORDER BY submitted_at DESC
LIMIT 1
FOR UPDATE`

func (q *Queries) GetOpenOrderForUpdate(ctx context.Context, tableID uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOpenOrderForUpdate, tableID))
}

const listOrders = `
SELECT ` + orderColumns + ` FROM orders ORDER BY submitted_at DESC`

func (q *Queries) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListOutstandingOrders returns unpaid orders, READY first, then oldest first,
// matching the cashier queue ordering.
const listOutstandingOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE payment_status IN ('OUTSTANDING', 'PARTIALLY_PAID')
ORDER BY CASE WHEN order_status = 'READY' THEN 0 ELSE 1 END, submitted_at ASC`

func (q *Queries) ListOutstandingOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOutstandingOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListKitchenOrders returns unpaid orders that still need kitchen attention.
const listKitchenOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE order_status IN ('SUBMITTED', 'PREPARING', 'READY')
  AND payment_status IN ('OUTSTANDING', 'PARTIALLY_PAID')
ORDER BY submitted_at ASC`

func (q *Queries) ListKitchenOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listKitchenOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type AddOrderTotalsParams struct {
	ID     uuid.UUID
	Amount pgtype.Numeric
}

// AddOrderTotals increments subtotal and total_amount by Amount (which may be
// negative, e.g. when an item is cancelled).
const addOrderTotals = `
UPDATE orders
SET subtotal = subtotal + $2, total_amount = total_amount + $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) AddOrderTotals(ctx context.Context, arg AddOrderTotalsParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, addOrderTotals, arg.ID, arg.Amount))
}

const markOrderPreparing = `
UPDATE orders
SET order_status = 'PREPARING', preparing_at = now(), updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) MarkOrderPreparing(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPreparing, id))
}

const markOrderReady = `
UPDATE orders
SET order_status = 'READY', ready_at = now(), updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) MarkOrderReady(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderReady, id))
}

const markOrderServed = `
UPDATE orders
SET order_status = 'SERVED', served_at = now(), updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) MarkOrderServed(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderServed, id))
}

const markOrderCompleted = `
UPDATE orders
SET order_status = 'COMPLETED', updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) MarkOrderCompleted(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderCompleted, id))
}

const markOrderCancelled = `
UPDATE orders
SET order_status = 'CANCELLED', updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) MarkOrderCancelled(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderCancelled, id))
}

type UpdateOrderPaymentStatusParams struct {
	ID            uuid.UUID
	PaymentStatus string
}

const updateOrderPaymentStatus = `
UPDATE orders
SET payment_status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderPaymentStatus(ctx context.Context, arg UpdateOrderPaymentStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderPaymentStatus, arg.ID, arg.PaymentStatus))
}

type GetOutstandingStatsRow struct {
	TotalOutstanding int64
	TotalAmount      pgtype.Numeric
	TodayOrders      int64
}

// GetOutstandingStats feeds the cashier dashboard header.
const getOutstandingStats = `
SELECT
	COUNT(*) AS total_outstanding,
	COALESCE(SUM(total_amount), 0) AS total_amount,
	(SELECT COUNT(*) FROM orders WHERE submitted_at::date = CURRENT_DATE) AS today_orders
FROM orders
WHERE payment_status IN ('OUTSTANDING', 'PARTIALLY_PAID')`

func (q *Queries) GetOutstandingStats(ctx context.Context) (GetOutstandingStatsRow, error) {
	var r GetOutstandingStatsRow
	err := q.db.QueryRow(ctx, getOutstandingStats).Scan(&r.TotalOutstanding, &r.TotalAmount, &r.TodayOrders)
	return r, err
}

const countOpenOrdersByTable = `
SELECT COUNT(*) FROM orders
WHERE table_id = $1 AND payment_status IN ('OUTSTANDING', 'PARTIALLY_PAID')`

func (q *Queries) CountOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOpenOrdersByTable, tableID).Scan(&n)
	return n, err
}
