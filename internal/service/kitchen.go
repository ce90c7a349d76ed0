package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kopisenja-pos/api/internal/database"
	"github.com/kopisenja-pos/api/internal/enum"
)

// Errors returned by the kitchen service.
var (
	ErrItemNotFound       = errors.New("order item not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidItemStatus  = errors.New("invalid item status")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrItemAlreadyFinal   = errors.New("item is in a final status")
	ErrOrderNotModifiable = errors.New("order is already settled")
)

// itemTransitions is the allowed item status machine. PENDING and
// PREPARING may also be cancelled; SERVED and CANCELLED are final.
var itemTransitions = map[string][]string{
	enum.ItemStatusPending:   {enum.ItemStatusPreparing, enum.ItemStatusCancelled},
	enum.ItemStatusPreparing: {enum.ItemStatusReady, enum.ItemStatusCancelled},
	enum.ItemStatusReady:     {enum.ItemStatusServed},
}

// KitchenStore defines the DB methods needed to move items through the
// kitchen. Satisfied by *database.Queries (and its WithTx variant).
type KitchenStore interface {
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	MarkOrderItemPreparing(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	MarkOrderItemReady(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	MarkOrderItemServed(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	CancelOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	MarkReadyItemsServed(ctx context.Context, orderID uuid.UUID) (int64, error)
	AddOrderTotals(ctx context.Context, arg database.AddOrderTotalsParams) (database.Order, error)
	GetOrderItemStatusCounts(ctx context.Context, orderID uuid.UUID) (database.GetOrderItemStatusCountsRow, error)
	MarkOrderPreparing(ctx context.Context, id uuid.UUID) (database.Order, error)
	MarkOrderReady(ctx context.Context, id uuid.UUID) (database.Order, error)
	MarkOrderServed(ctx context.Context, id uuid.UUID) (database.Order, error)
	MarkOrderCancelled(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// NewKitchenStore creates a KitchenStore from a DBTX (pool or tx).
type NewKitchenStore func(db database.DBTX) KitchenStore

// AdvanceItemResult carries the updated item and the order as derived
// after the change.
type AdvanceItemResult struct {
	Item  database.OrderItem
	Order database.Order
}

// MarkAllReadyServedResult reports the bulk serve outcome.
type MarkAllReadyServedResult struct {
	ServedCount int64
	Order       database.Order
}

// KitchenService moves order items through their status machine and keeps
// the aggregate order status derived from them.
type KitchenService struct {
	pool     TxBeginner
	newStore NewKitchenStore
}

// NewKitchenService creates a new KitchenService.
func NewKitchenService(pool TxBeginner, newStore NewKitchenStore) *KitchenService {
	return &KitchenService{pool: pool, newStore: newStore}
}

// AdvanceItemStatus moves one item to newStatus, then rederives the parent
// order's status in the same transaction. The parent order row is locked
// first so concurrent item updates serialize their derivations.
func (s *KitchenService) AdvanceItemStatus(ctx context.Context, itemID uuid.UUID, newStatus string) (*AdvanceItemResult, error) {
	switch newStatus {
	case enum.ItemStatusPreparing, enum.ItemStatusReady,
		enum.ItemStatusServed, enum.ItemStatusCancelled:
	default:
		return nil, ErrInvalidItemStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}

	if !transitionAllowed(item.Status, newStatus) {
		if item.Status == enum.ItemStatusServed || item.Status == enum.ItemStatusCancelled {
			return nil, fmt.Errorf("%s: %w", item.Status, ErrItemAlreadyFinal)
		}
		return nil, fmt.Errorf("%s -> %s: %w", item.Status, newStatus, ErrInvalidTransition)
	}

	// Lock the parent order before touching the item.
	order, err := store.GetOrderForUpdate(ctx, item.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.PaymentStatus == enum.PaymentStatusPaid || order.PaymentStatus == enum.PaymentStatusRefunded {
		return nil, ErrOrderNotModifiable
	}

	switch newStatus {
	case enum.ItemStatusPreparing:
		item, err = store.MarkOrderItemPreparing(ctx, itemID)
	case enum.ItemStatusReady:
		item, err = store.MarkOrderItemReady(ctx, itemID)
	case enum.ItemStatusServed:
		item, err = store.MarkOrderItemServed(ctx, itemID)
	case enum.ItemStatusCancelled:
		item, err = store.CancelOrderItem(ctx, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("update item status: %w", err)
	}

	// A cancelled item no longer counts toward the bill.
	if newStatus == enum.ItemStatusCancelled {
		refund := numericToDecimal(item.Subtotal).Neg()
		order, err = store.AddOrderTotals(ctx, database.AddOrderTotalsParams{
			ID:     order.ID,
			Amount: decimalToNumeric(refund),
		})
		if err != nil {
			return nil, fmt.Errorf("subtract cancelled item: %w", err)
		}
	}

	order, err = deriveOrderStatus(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &AdvanceItemResult{Item: item, Order: order}, nil
}

// MarkAllReadyServed bulk-serves every READY item of the order and
// rederives the order status.
func (s *KitchenService) MarkAllReadyServed(ctx context.Context, orderID uuid.UUID) (*MarkAllReadyServedResult, error) {
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

	count, err := store.MarkReadyItemsServed(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("mark ready items served: %w", err)
	}

	order, err = deriveOrderStatus(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &MarkAllReadyServedResult{ServedCount: count, Order: order}, nil
}

func transitionAllowed(from, to string) bool {
	for _, next := range itemTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// deriveOrderStatus recomputes the order's status from its non-cancelled
// item counts and applies it only when it changed, so the phase timestamps
// are stamped once. Must run with the order row already locked.
func deriveOrderStatus(ctx context.Context, store KitchenStore, order database.Order) (database.Order, error) {
	counts, err := store.GetOrderItemStatusCounts(ctx, order.ID)
	if err != nil {
		return order, fmt.Errorf("get item status counts: %w", err)
	}

	var target string
	switch {
	case counts.TotalItems == 0:
		target = enum.OrderStatusCancelled
	case counts.ServedItems == counts.TotalItems:
		target = enum.OrderStatusServed
	case counts.ReadyItems+counts.ServedItems == counts.TotalItems:
		target = enum.OrderStatusReady
	case counts.PendingItems == counts.TotalItems:
		target = enum.OrderStatusSubmitted
	default:
		target = enum.OrderStatusPreparing
	}

	if target == order.OrderStatus {
		return order, nil
	}

	var updated database.Order
	switch target {
	case enum.OrderStatusPreparing:
		updated, err = store.MarkOrderPreparing(ctx, order.ID)
	case enum.OrderStatusReady:
		updated, err = store.MarkOrderReady(ctx, order.ID)
	case enum.OrderStatusServed:
		updated, err = store.MarkOrderServed(ctx, order.ID)
	case enum.OrderStatusCancelled:
		updated, err = store.MarkOrderCancelled(ctx, order.ID)
	default:
		// SUBMITTED is the initial state; nothing can re-enter it.
		return order, nil
	}
	if err != nil {
		return order, fmt.Errorf("derive order status: %w", err)
	}
	return updated, nil
}
