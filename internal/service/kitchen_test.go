package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kopisenja-pos/api/internal/database"
	"github.com/kopisenja-pos/api/internal/enum"
)

// mockKitchenStore implements KitchenStore with configurable behavior.
type mockKitchenStore struct {
	getOrderItemFn             func(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	getOrderForUpdateFn        func(ctx context.Context, id uuid.UUID) (database.Order, error)
	markOrderItemPreparingFn   func(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	markOrderItemReadyFn       func(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	markOrderItemServedFn      func(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	cancelOrderItemFn          func(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	markReadyItemsServedFn     func(ctx context.Context, orderID uuid.UUID) (int64, error)
	addOrderTotalsFn           func(ctx context.Context, arg database.AddOrderTotalsParams) (database.Order, error)
	getOrderItemStatusCountsFn func(ctx context.Context, orderID uuid.UUID) (database.GetOrderItemStatusCountsRow, error)
	markOrderPreparingFn       func(ctx context.Context, id uuid.UUID) (database.Order, error)
	markOrderReadyFn           func(ctx context.Context, id uuid.UUID) (database.Order, error)
	markOrderServedFn          func(ctx context.Context, id uuid.UUID) (database.Order, error)
	markOrderCancelledFn       func(ctx context.Context, id uuid.UUID) (database.Order, error)
}

func (m *mockKitchenStore) GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
	return m.getOrderItemFn(ctx, id)
}
func (m *mockKitchenStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockKitchenStore) MarkOrderItemPreparing(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
	return m.markOrderItemPreparingFn(ctx, id)
}
func (m *mockKitchenStore) MarkOrderItemReady(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
	return m.markOrderItemReadyFn(ctx, id)
}
func (m *mockKitchenStore) MarkOrderItemServed(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
	return m.markOrderItemServedFn(ctx, id)
}
func (m *mockKitchenStore) CancelOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
	return m.cancelOrderItemFn(ctx, id)
}
func (m *mockKitchenStore) MarkReadyItemsServed(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return m.markReadyItemsServedFn(ctx, orderID)
}
func (m *mockKitchenStore) AddOrderTotals(ctx context.Context, arg database.AddOrderTotalsParams) (database.Order, error) {
	return m.addOrderTotalsFn(ctx, arg)
}
func (m *mockKitchenStore) GetOrderItemStatusCounts(ctx context.Context, orderID uuid.UUID) (database.GetOrderItemStatusCountsRow, error) {
	return m.getOrderItemStatusCountsFn(ctx, orderID)
}
func (m *mockKitchenStore) MarkOrderPreparing(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.markOrderPreparingFn(ctx, id)
}
func (m *mockKitchenStore) MarkOrderReady(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.markOrderReadyFn(ctx, id)
}
func (m *mockKitchenStore) MarkOrderServed(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.markOrderServedFn(ctx, id)
}
func (m *mockKitchenStore) MarkOrderCancelled(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.markOrderCancelledFn(ctx, id)
}

func newTestKitchenService(store *mockKitchenStore) *KitchenService {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) KitchenStore { return store }
	return NewKitchenService(pool, newStore)
}

// defaultKitchenStore wires one item in itemStatus on an open order whose
// remaining items are summarized by counts. Status updates echo back and
// order Mark* calls record which status was applied.
func defaultKitchenStore(itemID, orderID uuid.UUID, itemStatus, orderStatus string, counts database.GetOrderItemStatusCountsRow) (*mockKitchenStore, *string) {
	applied := new(string)
	echoItem := func(status string) func(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
		return func(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
			return database.OrderItem{ID: id, OrderID: orderID, Status: status, Subtotal: makeNumeric("30000.00")}, nil
		}
	}
	echoOrder := func(status string) func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			*applied = status
			return database.Order{ID: id, OrderStatus: status, PaymentStatus: enum.PaymentStatusOutstanding}, nil
		}
	}
	return &mockKitchenStore{
		getOrderItemFn: func(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
			if id == itemID {
				return database.OrderItem{ID: itemID, OrderID: orderID, Status: itemStatus, Subtotal: makeNumeric("30000.00")}, nil
			}
			return database.OrderItem{}, pgx.ErrNoRows
		},
		getOrderForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			if id == orderID {
				return database.Order{
					ID:            orderID,
					OrderStatus:   orderStatus,
					PaymentStatus: enum.PaymentStatusOutstanding,
					TotalAmount:   makeNumeric("80000.00"),
				}, nil
			}
			return database.Order{}, pgx.ErrNoRows
		},
		markOrderItemPreparingFn: echoItem(enum.ItemStatusPreparing),
		markOrderItemReadyFn:     echoItem(enum.ItemStatusReady),
		markOrderItemServedFn:    echoItem(enum.ItemStatusServed),
		cancelOrderItemFn:        echoItem(enum.ItemStatusCancelled),
		markReadyItemsServedFn: func(ctx context.Context, oid uuid.UUID) (int64, error) {
			return 0, nil
		},
		addOrderTotalsFn: func(ctx context.Context, arg database.AddOrderTotalsParams) (database.Order, error) {
			return database.Order{ID: arg.ID, OrderStatus: orderStatus, PaymentStatus: enum.PaymentStatusOutstanding}, nil
		},
		getOrderItemStatusCountsFn: func(ctx context.Context, oid uuid.UUID) (database.GetOrderItemStatusCountsRow, error) {
			return counts, nil
		},
		markOrderPreparingFn: echoOrder(enum.OrderStatusPreparing),
		markOrderReadyFn:     echoOrder(enum.OrderStatusReady),
		markOrderServedFn:    echoOrder(enum.OrderStatusServed),
		markOrderCancelledFn: echoOrder(enum.OrderStatusCancelled),
	}, applied
}

// =====================
// Transition validation tests
// =====================

func TestAdvanceItemStatus_InvalidStatus(t *testing.T) {
	store, _ := defaultKitchenStore(uuid.New(), uuid.New(), enum.ItemStatusPending, enum.OrderStatusSubmitted,
		database.GetOrderItemStatusCountsRow{})
	svc := newTestKitchenService(store)

	_, err := svc.AdvanceItemStatus(context.Background(), uuid.New(), "COOKING")
	if !errors.Is(err, ErrInvalidItemStatus) {
		t.Fatalf("expected ErrInvalidItemStatus, got: %v", err)
	}
}

func TestAdvanceItemStatus_ItemNotFound(t *testing.T) {
	store, _ := defaultKitchenStore(uuid.New(), uuid.New(), enum.ItemStatusPending, enum.OrderStatusSubmitted,
		database.GetOrderItemStatusCountsRow{})
	svc := newTestKitchenService(store)

	_, err := svc.AdvanceItemStatus(context.Background(), uuid.New(), enum.ItemStatusPreparing)
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got: %v", err)
	}
}

func TestAdvanceItemStatus_SkippingStepRejected(t *testing.T) {
	itemID := uuid.New()
	store, _ := defaultKitchenStore(itemID, uuid.New(), enum.ItemStatusPending, enum.OrderStatusSubmitted,
		database.GetOrderItemStatusCountsRow{})
	svc := newTestKitchenService(store)

	// PENDING cannot jump straight to READY.
	_, err := svc.AdvanceItemStatus(context.Background(), itemID, enum.ItemStatusReady)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got: %v", err)
	}
}

func TestAdvanceItemStatus_ServedIsFinal(t *testing.T) {
	itemID := uuid.New()
	store, _ := defaultKitchenStore(itemID, uuid.New(), enum.ItemStatusServed, enum.OrderStatusServed,
		database.GetOrderItemStatusCountsRow{})
	svc := newTestKitchenService(store)

	_, err := svc.AdvanceItemStatus(context.Background(), itemID, enum.ItemStatusPreparing)
	if !errors.Is(err, ErrItemAlreadyFinal) {
		t.Fatalf("expected ErrItemAlreadyFinal, got: %v", err)
	}
}

func TestAdvanceItemStatus_ReadyCannotBeCancelled(t *testing.T) {
	itemID := uuid.New()
	store, _ := defaultKitchenStore(itemID, uuid.New(), enum.ItemStatusReady, enum.OrderStatusReady,
		database.GetOrderItemStatusCountsRow{})
	svc := newTestKitchenService(store)

	_, err := svc.AdvanceItemStatus(context.Background(), itemID, enum.ItemStatusCancelled)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got: %v", err)
	}
}

func TestAdvanceItemStatus_SettledOrderRejected(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()
	store, _ := defaultKitchenStore(itemID, orderID, enum.ItemStatusReady, enum.OrderStatusServed,
		database.GetOrderItemStatusCountsRow{})
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, OrderStatus: enum.OrderStatusServed, PaymentStatus: enum.PaymentStatusPaid}, nil
	}
	svc := newTestKitchenService(store)

	_, err := svc.AdvanceItemStatus(context.Background(), itemID, enum.ItemStatusServed)
	if !errors.Is(err, ErrOrderNotModifiable) {
		t.Fatalf("expected ErrOrderNotModifiable, got: %v", err)
	}
}

// =====================
// Order status derivation tests
// =====================

func TestAdvanceItemStatus_FirstPreparingMovesOrder(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()
	// After the update: one PREPARING, one still PENDING.
	store, applied := defaultKitchenStore(itemID, orderID, enum.ItemStatusPending, enum.OrderStatusSubmitted,
		database.GetOrderItemStatusCountsRow{TotalItems: 2, PendingItems: 1, PreparingItems: 1})
	svc := newTestKitchenService(store)

	result, err := svc.AdvanceItemStatus(context.Background(), itemID, enum.ItemStatusPreparing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *applied != enum.OrderStatusPreparing {
		t.Errorf("derived order status: got %q, want PREPARING", *applied)
	}
	if result.Item.Status != enum.ItemStatusPreparing {
		t.Errorf("item status: got %v, want PREPARING", result.Item.Status)
	}
}

func TestAdvanceItemStatus_LastReadyMovesOrderReady(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()
	// After the update every non-cancelled item is READY.
	store, applied := defaultKitchenStore(itemID, orderID, enum.ItemStatusPreparing, enum.OrderStatusPreparing,
		database.GetOrderItemStatusCountsRow{TotalItems: 3, ReadyItems: 3})
	svc := newTestKitchenService(store)

	_, err := svc.AdvanceItemStatus(context.Background(), itemID, enum.ItemStatusReady)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *applied != enum.OrderStatusReady {
		t.Errorf("derived order status: got %q, want READY", *applied)
	}
}

func TestAdvanceItemStatus_MixedReadyServedStaysReady(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()
	// One served, two still ready: READY derivation covers both counts.
	store, applied := defaultKitchenStore(itemID, orderID, enum.ItemStatusReady, enum.OrderStatusReady,
		database.GetOrderItemStatusCountsRow{TotalItems: 3, ReadyItems: 2, ServedItems: 1})
	svc := newTestKitchenService(store)

	_, err := svc.AdvanceItemStatus(context.Background(), itemID, enum.ItemStatusServed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Order already READY; no status write should happen.
	if *applied != "" {
		t.Errorf("expected no order status write, got %q", *applied)
	}
}

func TestAdvanceItemStatus_LastServedCompletesService(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()
	store, applied := defaultKitchenStore(itemID, orderID, enum.ItemStatusReady, enum.OrderStatusReady,
		database.GetOrderItemStatusCountsRow{TotalItems: 2, ServedItems: 2})
	svc := newTestKitchenService(store)

	result, err := svc.AdvanceItemStatus(context.Background(), itemID, enum.ItemStatusServed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *applied != enum.OrderStatusServed {
		t.Errorf("derived order status: got %q, want SERVED", *applied)
	}
	if result.Order.OrderStatus != enum.OrderStatusServed {
		t.Errorf("result order status: got %v, want SERVED", result.Order.OrderStatus)
	}
}

func TestAdvanceItemStatus_CancelSubtractsSubtotal(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()
	store, _ := defaultKitchenStore(itemID, orderID, enum.ItemStatusPending, enum.OrderStatusPreparing,
		database.GetOrderItemStatusCountsRow{TotalItems: 1, PreparingItems: 1})

	var capturedTotals database.AddOrderTotalsParams
	store.addOrderTotalsFn = func(ctx context.Context, arg database.AddOrderTotalsParams) (database.Order, error) {
		capturedTotals = arg
		return database.Order{ID: arg.ID, OrderStatus: enum.OrderStatusPreparing, PaymentStatus: enum.PaymentStatusOutstanding}, nil
	}

	svc := newTestKitchenService(store)
	_, err := svc.AdvanceItemStatus(context.Background(), itemID, enum.ItemStatusCancelled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Item subtotal is 30000; the order total must drop by that amount.
	if !numericEquals(capturedTotals.Amount, "-30000.00") {
		t.Errorf("totals delta: got %v, want -30000.00", numericToDecimal(capturedTotals.Amount))
	}
}

func TestAdvanceItemStatus_AllCancelledCancelsOrder(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()
	// The cancelled item was the last live one.
	store, applied := defaultKitchenStore(itemID, orderID, enum.ItemStatusPending, enum.OrderStatusSubmitted,
		database.GetOrderItemStatusCountsRow{TotalItems: 0})
	svc := newTestKitchenService(store)

	_, err := svc.AdvanceItemStatus(context.Background(), itemID, enum.ItemStatusCancelled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *applied != enum.OrderStatusCancelled {
		t.Errorf("derived order status: got %q, want CANCELLED", *applied)
	}
}

func TestAdvanceItemStatus_AllPendingNoChange(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()
	// A PREPARING item gets cancelled, leaving only PENDING items.
	store, applied := defaultKitchenStore(itemID, orderID, enum.ItemStatusPreparing, enum.OrderStatusPreparing,
		database.GetOrderItemStatusCountsRow{TotalItems: 2, PendingItems: 2})
	svc := newTestKitchenService(store)

	_, err := svc.AdvanceItemStatus(context.Background(), itemID, enum.ItemStatusCancelled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// SUBMITTED cannot be re-entered: the order keeps its status.
	if *applied != "" {
		t.Errorf("expected no order status write, got %q", *applied)
	}
}

// =====================
// Bulk serve tests
// =====================

func TestMarkAllReadyServed(t *testing.T) {
	orderID := uuid.New()
	store, applied := defaultKitchenStore(uuid.New(), orderID, enum.ItemStatusReady, enum.OrderStatusReady,
		database.GetOrderItemStatusCountsRow{TotalItems: 3, ServedItems: 3})
	store.markReadyItemsServedFn = func(ctx context.Context, oid uuid.UUID) (int64, error) {
		if oid != orderID {
			t.Errorf("bulk serve on wrong order: %v", oid)
		}
		return 3, nil
	}

	svc := newTestKitchenService(store)
	result, err := svc.MarkAllReadyServed(context.Background(), orderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ServedCount != 3 {
		t.Errorf("served count: got %d, want 3", result.ServedCount)
	}
	if *applied != enum.OrderStatusServed {
		t.Errorf("derived order status: got %q, want SERVED", *applied)
	}
}

func TestMarkAllReadyServed_NothingReady(t *testing.T) {
	orderID := uuid.New()
	// No READY items; counts unchanged, order stays PREPARING.
	store, applied := defaultKitchenStore(uuid.New(), orderID, enum.ItemStatusPending, enum.OrderStatusPreparing,
		database.GetOrderItemStatusCountsRow{TotalItems: 2, PendingItems: 1, PreparingItems: 1})
	svc := newTestKitchenService(store)

	result, err := svc.MarkAllReadyServed(context.Background(), orderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ServedCount != 0 {
		t.Errorf("served count: got %d, want 0", result.ServedCount)
	}
	if *applied != "" {
		t.Errorf("expected no order status write, got %q", *applied)
	}
}

func TestMarkAllReadyServed_OrderNotFound(t *testing.T) {
	store, _ := defaultKitchenStore(uuid.New(), uuid.New(), enum.ItemStatusReady, enum.OrderStatusReady,
		database.GetOrderItemStatusCountsRow{})
	svc := newTestKitchenService(store)

	_, err := svc.MarkAllReadyServed(context.Background(), uuid.New())
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}
