package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderItemColumns = `id, order_id, menu_item_id, item_name, quantity, unit_price, subtotal,
	status, special_instructions, prepared_at, ready_at, served_at, created_at`

func scanOrderItem(row interface{ Scan(dest ...any) error }) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuItemID,
		&i.ItemName,
		&i.Quantity,
		&i.UnitPrice,
		&i.Subtotal,
		&i.Status,
		&i.SpecialInstructions,
		&i.PreparedAt,
		&i.ReadyAt,
		&i.ServedAt,
		&i.CreatedAt,
	)
	return i, err
}

type CreateOrderItemParams struct {
	OrderID             uuid.UUID
	MenuItemID          uuid.UUID
	ItemName            string
	Quantity            int32
	UnitPrice           pgtype.Numeric
	Subtotal            pgtype.Numeric
	Status              string
	SpecialInstructions pgtype.Text
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, item_name, quantity, unit_price, subtotal, status, special_instructions)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderItemColumns

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.ItemName,
		arg.Quantity,
		arg.UnitPrice,
		arg.Subtotal,
		arg.Status,
		arg.SpecialInstructions,
	))
}

const getOrderItem = `
SELECT ` + orderItemColumns + ` FROM order_items WHERE id = $1`

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, id))
}

const listOrderItemsByOrder = `
SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY created_at, id`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const markOrderItemPreparing = `
UPDATE order_items
SET status = 'PREPARING', prepared_at = now()
WHERE id = $1
RETURNING ` + orderItemColumns

func (q *Queries) MarkOrderItemPreparing(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, markOrderItemPreparing, id))
}

const markOrderItemReady = `
UPDATE order_items
SET status = 'READY', ready_at = now()
WHERE id = $1
RETURNING ` + orderItemColumns

func (q *Queries) MarkOrderItemReady(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, markOrderItemReady, id))
}

const markOrderItemServed = `
UPDATE order_items
SET status = 'SERVED', served_at = now()
WHERE id = $1
RETURNING ` + orderItemColumns

func (q *Queries) MarkOrderItemServed(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, markOrderItemServed, id))
}

const cancelOrderItem = `
UPDATE order_items
SET status = 'CANCELLED'
WHERE id = $1
RETURNING ` + orderItemColumns

func (q *Queries) CancelOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, cancelOrderItem, id))
}

// MarkReadyItemsServed bulk-serves every READY item of an order and reports
// how many rows changed.
const markReadyItemsServed = `
UPDATE order_items
SET status = 'SERVED', served_at = now()
WHERE order_id = $1 AND status = 'READY'`

func (q *Queries) MarkReadyItemsServed(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, markReadyItemsServed, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type GetOrderItemStatusCountsRow struct {
	TotalItems     int64
	PendingItems   int64
	PreparingItems int64
	ReadyItems     int64
	ServedItems    int64
}

// GetOrderItemStatusCounts drives the aggregate order_status derivation.
// Cancelled items are excluded from every count.
const getOrderItemStatusCounts = `
SELECT
	COUNT(*) FILTER (WHERE status <> 'CANCELLED')  AS total_items,
	COUNT(*) FILTER (WHERE status = 'PENDING')     AS pending_items,
	COUNT(*) FILTER (WHERE status = 'PREPARING')   AS preparing_items,
	COUNT(*) FILTER (WHERE status = 'READY')       AS ready_items,
	COUNT(*) FILTER (WHERE status = 'SERVED')      AS served_items
FROM order_items
WHERE order_id = $1`

func (q *Queries) GetOrderItemStatusCounts(ctx context.Context, orderID uuid.UUID) (GetOrderItemStatusCountsRow, error) {
	var r GetOrderItemStatusCountsRow
	err := q.db.QueryRow(ctx, getOrderItemStatusCounts, orderID).Scan(
		&r.TotalItems,
		&r.PendingItems,
		&r.PreparingItems,
		&r.ReadyItems,
		&r.ServedItems,
	)
	return r, err
}
