package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, payment_number, payment_method, amount, amount_tendered,
	change_amount, payment_status, processed_by, processed_at`

func scanPayment(row interface{ Scan(dest ...any) error }) (Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.PaymentNumber,
		&p.PaymentMethod,
		&p.Amount,
		&p.AmountTendered,
		&p.ChangeAmount,
		&p.PaymentStatus,
		&p.ProcessedBy,
		&p.ProcessedAt,
	)
	return p, err
}

type CreatePaymentParams struct {
	OrderID        uuid.UUID
	PaymentNumber  string
	PaymentMethod  string
	Amount         pgtype.Numeric
	AmountTendered pgtype.Numeric
	ChangeAmount   pgtype.Numeric
	PaymentStatus  string
	ProcessedBy    pgtype.UUID
}

const createPayment = `
INSERT INTO payments (order_id, payment_number, payment_method, amount, amount_tendered,
	change_amount, payment_status, processed_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + paymentColumns

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, createPayment,
		arg.OrderID,
		arg.PaymentNumber,
		arg.PaymentMethod,
		arg.Amount,
		arg.AmountTendered,
		arg.ChangeAmount,
		arg.PaymentStatus,
		arg.ProcessedBy,
	))
}

const listPaymentsByOrder = `
SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY processed_at, id`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// SumCompletedPaymentsByOrder returns the settled total of the order's
// payment ledger.
const sumCompletedPaymentsByOrder = `
SELECT COALESCE(SUM(amount), 0)
FROM payments
WHERE order_id = $1 AND payment_status = 'COMPLETED'`

func (q *Queries) SumCompletedPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sumCompletedPaymentsByOrder, orderID).Scan(&n)
	return n, err
}

// RefundPaymentsByOrder flips every COMPLETED payment of an order to
// REFUNDED and reports how many rows changed.
const refundPaymentsByOrder = `
UPDATE payments
SET payment_status = 'REFUNDED'
WHERE order_id = $1 AND payment_status = 'COMPLETED'`

func (q *Queries) RefundPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, refundPaymentsByOrder, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
