package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopisenja-pos/api/internal/database"
	"github.com/kopisenja-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the payment service.
var (
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrInvalidAmount        = errors.New("amount must be > 0")
	ErrAmountExceedsBalance = errors.New("amount exceeds outstanding balance")
	ErrOrderAlreadyPaid     = errors.New("order is already paid")
	ErrOrderRefunded        = errors.New("order has been refunded")
	ErrOrderNotPaid         = errors.New("only paid orders can be refunded")
	ErrInsufficientTender   = errors.New("amount_tendered is less than amount")
	ErrNothingToRefund      = errors.New("no completed payments to refund")
)

// paymentMethodAliases maps the method names cashiers send to the names
// stored in the ledger.
var paymentMethodAliases = map[string]string{
	"CASH":       enum.PaymentMethodCash,
	"QRIS":       enum.PaymentMethodQRIS,
	"CARD":       enum.PaymentMethodDebitCard,
	"DEBIT_CARD": enum.PaymentMethodDebitCard,
}

// PaymentStore defines the DB methods needed to settle and refund orders.
// Satisfied by *database.Queries (and its WithTx variant).
type PaymentStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	SumCompletedPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	UpdateOrderPaymentStatus(ctx context.Context, arg database.UpdateOrderPaymentStatusParams) (database.Order, error)
	MarkOrderCompleted(ctx context.Context, id uuid.UUID) (database.Order, error)
	RefundPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// NewPaymentStore creates a PaymentStore from a DBTX (pool or tx).
type NewPaymentStore func(db database.DBTX) PaymentStore

// ProcessPaymentRequest is the validated input for settling an order.
// AmountTendered only applies to CASH.
type ProcessPaymentRequest struct {
	OrderID        uuid.UUID
	PaymentMethod  string
	Amount         decimal.Decimal
	AmountTendered decimal.Decimal
	ProcessedBy    uuid.UUID
}

// ProcessPaymentResult carries the ledger row and the order after settlement.
type ProcessPaymentResult struct {
	Payment      database.Payment
	Order        database.Order
	ChangeAmount decimal.Decimal
}

// RefundResult reports how many ledger rows were reversed.
type RefundResult struct {
	Order         database.Order
	RefundedCount int64
}

// PaymentService reconciles orders against their payment ledger.
type PaymentService struct {
	pool     TxBeginner
	newStore NewPaymentStore
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(pool TxBeginner, newStore NewPaymentStore) *PaymentService {
	return &PaymentService{pool: pool, newStore: newStore}
}

// ProcessPayment records a payment against the order's outstanding balance.
// The order row is locked for the whole check-then-insert so two cashiers
// cannot both settle the same order. A payment covering the full balance
// flips the order to PAID; anything less leaves it PARTIALLY_PAID.
func (s *PaymentService) ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (*ProcessPaymentResult, error) {
	method, ok := paymentMethodAliases[req.PaymentMethod]
	if !ok {
		return nil, ErrInvalidPaymentMethod
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	switch order.PaymentStatus {
	case enum.PaymentStatusPaid:
		return nil, ErrOrderAlreadyPaid
	case enum.PaymentStatusRefunded:
		return nil, ErrOrderRefunded
	}

	paidSoFar, err := store.SumCompletedPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	balance := numericToDecimal(order.TotalAmount).Sub(numericToDecimal(paidSoFar))

	if req.Amount.GreaterThan(balance) {
		return nil, fmt.Errorf("balance %s: %w", balance.StringFixed(2), ErrAmountExceedsBalance)
	}

	// CASH takes tender and hands back change; other methods settle exact,
	// so their tendered amount is the amount itself.
	tendered := decimalToNumeric(req.Amount)
	change := decimal.Zero
	if method == enum.PaymentMethodCash {
		if req.AmountTendered.LessThan(req.Amount) {
			return nil, ErrInsufficientTender
		}
		change = req.AmountTendered.Sub(req.Amount)
		tendered = decimalToNumeric(req.AmountTendered)
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:        order.ID,
		PaymentNumber:  paymentNumber(),
		PaymentMethod:  method,
		Amount:         decimalToNumeric(req.Amount),
		AmountTendered: tendered,
		ChangeAmount:   decimalToNumeric(change),
		PaymentStatus:  enum.PaymentRowCompleted,
		ProcessedBy:    pgtype.UUID{Bytes: req.ProcessedBy, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	newStatus := enum.PaymentStatusPartiallyPaid
	if req.Amount.Equal(balance) {
		newStatus = enum.PaymentStatusPaid
	}
	order, err = store.UpdateOrderPaymentStatus(ctx, database.UpdateOrderPaymentStatusParams{
		ID:            order.ID,
		PaymentStatus: newStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	// Settling a fully served order closes it out.
	if newStatus == enum.PaymentStatusPaid && order.OrderStatus == enum.OrderStatusServed {
		order, err = store.MarkOrderCompleted(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("mark order completed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &ProcessPaymentResult{Payment: payment, Order: order, ChangeAmount: change}, nil
}

// RefundOrder reverses every completed payment of a PAID order and marks
// the order REFUNDED.
func (s *PaymentService) RefundOrder(ctx context.Context, orderID uuid.UUID) (*RefundResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.PaymentStatus != enum.PaymentStatusPaid {
		return nil, ErrOrderNotPaid
	}

	count, err := store.RefundPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("refund payments: %w", err)
	}
	if count == 0 {
		return nil, ErrNothingToRefund
	}

	order, err = store.UpdateOrderPaymentStatus(ctx, database.UpdateOrderPaymentStatusParams{
		ID:            orderID,
		PaymentStatus: enum.PaymentStatusRefunded,
	})
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &RefundResult{Order: order, RefundedCount: count}, nil
}

func paymentNumber() string {
	return fmt.Sprintf("PAY-%d", time.Now().UnixMilli())
}
