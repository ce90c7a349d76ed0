package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kopisenja-pos/api/internal/database"
	"github.com/kopisenja-pos/api/internal/enum"
	"github.com/kopisenja-pos/api/internal/handler"
	"github.com/kopisenja-pos/api/internal/middleware"
	"github.com/kopisenja-pos/api/internal/service"
)

// --- Mock kitchen service ---

type mockKitchenService struct {
	advanceFn       func(ctx context.Context, itemID uuid.UUID, newStatus string) (*service.AdvanceItemResult, error)
	markAllServedFn func(ctx context.Context, orderID uuid.UUID) (*service.MarkAllReadyServedResult, error)
}

func (m *mockKitchenService) AdvanceItemStatus(ctx context.Context, itemID uuid.UUID, newStatus string) (*service.AdvanceItemResult, error) {
	return m.advanceFn(ctx, itemID, newStatus)
}

func (m *mockKitchenService) MarkAllReadyServed(ctx context.Context, orderID uuid.UUID) (*service.MarkAllReadyServedResult, error) {
	return m.markAllServedFn(ctx, orderID)
}

// --- Mock kitchen reader ---

type mockKitchenReader struct {
	orders []database.Order
	items  map[uuid.UUID][]database.OrderItem // keyed by order ID
}

func (m *mockKitchenReader) ListKitchenOrders(_ context.Context) ([]database.Order, error) {
	return m.orders, nil
}

func (m *mockKitchenReader) ListOrderItemsByOrder(_ context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.items[orderID], nil
}

func setupKitchenRouter(svc *mockKitchenService, store *mockKitchenReader) *chi.Mux {
	h := handler.NewKitchenHandler(svc, store, nil)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		h.RegisterRoutes(r)
	})
	return r
}

// --- Tests ---

func TestKitchenListOrders_GroupsItems(t *testing.T) {
	orderID := uuid.New()
	store := &mockKitchenReader{
		orders: []database.Order{
			{
				ID: orderID, OrderNumber: "ORD-001", OrderType: enum.OrderTypeDineIn,
				OrderStatus: enum.OrderStatusPreparing, PaymentStatus: enum.PaymentStatusOutstanding,
				Subtotal: makeNumeric(t, "50000.00"), TotalAmount: makeNumeric(t, "50000.00"),
				SubmittedAt: time.Now(), UpdatedAt: time.Now(),
			},
		},
		items: map[uuid.UUID][]database.OrderItem{
			orderID: {
				{ID: uuid.New(), OrderID: orderID, MenuItemID: uuid.New(), ItemName: "Nasi Goreng Senja",
					Quantity: 1, UnitPrice: makeNumeric(t, "35000.00"), Subtotal: makeNumeric(t, "35000.00"),
					Status: enum.ItemStatusPreparing, CreatedAt: time.Now()},
				{ID: uuid.New(), OrderID: orderID, MenuItemID: uuid.New(), ItemName: "Americano",
					Quantity: 1, UnitPrice: makeNumeric(t, "22000.00"), Subtotal: makeNumeric(t, "22000.00"),
					Status: enum.ItemStatusPending, CreatedAt: time.Now()},
			},
		},
	}

	router := setupKitchenRouter(&mockKitchenService{}, store)
	claims := testClaims(enum.RoleKitchen)

	rr := doAuthRequest(t, router, "GET", "/kitchen/orders", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeJSONList(t, rr)
	if len(resp) != 1 {
		t.Fatalf("orders: got %d, want 1", len(resp))
	}
	items := resp[0]["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}
}

func TestUpdateItemStatus_HappyPath(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()

	svc := &mockKitchenService{
		advanceFn: func(_ context.Context, gotItemID uuid.UUID, newStatus string) (*service.AdvanceItemResult, error) {
			if gotItemID != itemID {
				t.Fatalf("item id: got %s, want %s", gotItemID, itemID)
			}
			if newStatus != enum.ItemStatusPreparing {
				t.Fatalf("status: got %s, want PREPARING", newStatus)
			}
			return &service.AdvanceItemResult{
				Item: database.OrderItem{
					ID: itemID, OrderID: orderID, MenuItemID: uuid.New(), ItemName: "Cappuccino",
					Quantity: 1, UnitPrice: makeNumeric(t, "28000.00"), Subtotal: makeNumeric(t, "28000.00"),
					Status: enum.ItemStatusPreparing, CreatedAt: time.Now(),
				},
				Order: database.Order{
					ID: orderID, OrderNumber: "ORD-001", OrderType: enum.OrderTypeDineIn,
					OrderStatus: enum.OrderStatusPreparing, PaymentStatus: enum.PaymentStatusOutstanding,
					Subtotal: makeNumeric(t, "28000.00"), TotalAmount: makeNumeric(t, "28000.00"),
					SubmittedAt: time.Now(), UpdatedAt: time.Now(),
				},
			}, nil
		},
	}
	router := setupKitchenRouter(svc, &mockKitchenReader{})
	claims := testClaims(enum.RoleKitchen)

	rr := doAuthRequest(t, router, "POST", "/kitchen/update-status", map[string]interface{}{
		"item_id": itemID.String(),
		"status":  "PREPARING",
	}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	item := resp["item"].(map[string]interface{})
	if item["status"] != "PREPARING" {
		t.Errorf("item status: got %v, want PREPARING", item["status"])
	}
	order := resp["order"].(map[string]interface{})
	if order["order_status"] != "PREPARING" {
		t.Errorf("order status: got %v, want PREPARING", order["order_status"])
	}
}

func TestUpdateItemStatus_InvalidItemID(t *testing.T) {
	router := setupKitchenRouter(&mockKitchenService{}, &mockKitchenReader{})
	claims := testClaims(enum.RoleKitchen)

	rr := doAuthRequest(t, router, "POST", "/kitchen/update-status", map[string]interface{}{
		"item_id": "not-a-uuid",
		"status":  "PREPARING",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdateItemStatus_InvalidTransitionIs409(t *testing.T) {
	svc := &mockKitchenService{
		advanceFn: func(_ context.Context, _ uuid.UUID, _ string) (*service.AdvanceItemResult, error) {
			return nil, service.ErrInvalidTransition
		},
	}
	router := setupKitchenRouter(svc, &mockKitchenReader{})
	claims := testClaims(enum.RoleKitchen)

	rr := doAuthRequest(t, router, "POST", "/kitchen/update-status", map[string]interface{}{
		"item_id": uuid.New().String(),
		"status":  "READY",
	}, claims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestUpdateItemStatus_UnknownStatusIs400(t *testing.T) {
	svc := &mockKitchenService{
		advanceFn: func(_ context.Context, _ uuid.UUID, _ string) (*service.AdvanceItemResult, error) {
			return nil, service.ErrInvalidItemStatus
		},
	}
	router := setupKitchenRouter(svc, &mockKitchenReader{})
	claims := testClaims(enum.RoleKitchen)

	rr := doAuthRequest(t, router, "POST", "/kitchen/update-status", map[string]interface{}{
		"item_id": uuid.New().String(),
		"status":  "COOKING",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdateItemStatus_ItemNotFoundIs404(t *testing.T) {
	svc := &mockKitchenService{
		advanceFn: func(_ context.Context, _ uuid.UUID, _ string) (*service.AdvanceItemResult, error) {
			return nil, service.ErrItemNotFound
		},
	}
	router := setupKitchenRouter(svc, &mockKitchenReader{})
	claims := testClaims(enum.RoleKitchen)

	rr := doAuthRequest(t, router, "POST", "/kitchen/update-status", map[string]interface{}{
		"item_id": uuid.New().String(),
		"status":  "PREPARING",
	}, claims)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUpdateItemStatus_SettledOrderIs409(t *testing.T) {
	svc := &mockKitchenService{
		advanceFn: func(_ context.Context, _ uuid.UUID, _ string) (*service.AdvanceItemResult, error) {
			return nil, service.ErrOrderNotModifiable
		},
	}
	router := setupKitchenRouter(svc, &mockKitchenReader{})
	claims := testClaims(enum.RoleKitchen)

	rr := doAuthRequest(t, router, "POST", "/kitchen/update-status", map[string]interface{}{
		"item_id": uuid.New().String(),
		"status":  "CANCELLED",
	}, claims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestMarkAllReadyServed_HappyPath(t *testing.T) {
	orderID := uuid.New()
	svc := &mockKitchenService{
		markAllServedFn: func(_ context.Context, gotOrderID uuid.UUID) (*service.MarkAllReadyServedResult, error) {
			if gotOrderID != orderID {
				t.Fatalf("order id: got %s, want %s", gotOrderID, orderID)
			}
			return &service.MarkAllReadyServedResult{
				ServedCount: 3,
				Order: database.Order{
					ID: orderID, OrderNumber: "ORD-001", OrderType: enum.OrderTypeDineIn,
					OrderStatus: enum.OrderStatusServed, PaymentStatus: enum.PaymentStatusOutstanding,
					Subtotal: makeNumeric(t, "90000.00"), TotalAmount: makeNumeric(t, "90000.00"),
					SubmittedAt: time.Now(), UpdatedAt: time.Now(),
				},
			}, nil
		},
	}
	router := setupKitchenRouter(svc, &mockKitchenReader{})
	claims := testClaims(enum.RoleWaiter)

	rr := doAuthRequest(t, router, "POST", "/orders/mark-all-ready-served", map[string]interface{}{
		"order_id": orderID.String(),
	}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	if resp["served_count"] != float64(3) {
		t.Errorf("served_count: got %v, want 3", resp["served_count"])
	}
	order := resp["order"].(map[string]interface{})
	if order["order_status"] != "SERVED" {
		t.Errorf("order_status: got %v, want SERVED", order["order_status"])
	}
}

func TestMarkAllReadyServed_OrderNotFoundIs404(t *testing.T) {
	svc := &mockKitchenService{
		markAllServedFn: func(_ context.Context, _ uuid.UUID) (*service.MarkAllReadyServedResult, error) {
			return nil, service.ErrOrderNotFound
		},
	}
	router := setupKitchenRouter(svc, &mockKitchenReader{})
	claims := testClaims(enum.RoleWaiter)

	rr := doAuthRequest(t, router, "POST", "/orders/mark-all-ready-served", map[string]interface{}{
		"order_id": uuid.New().String(),
	}, claims)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestMarkAllReadyServed_InvalidOrderID(t *testing.T) {
	router := setupKitchenRouter(&mockKitchenService{}, &mockKitchenReader{})
	claims := testClaims(enum.RoleWaiter)

	rr := doAuthRequest(t, router, "POST", "/orders/mark-all-ready-served", map[string]interface{}{
		"order_id": "order-one",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestMarkItemServed_HappyPath(t *testing.T) {
	itemID := uuid.New()
	orderID := uuid.New()

	svc := &mockKitchenService{
		advanceFn: func(_ context.Context, gotItemID uuid.UUID, newStatus string) (*service.AdvanceItemResult, error) {
			if gotItemID != itemID {
				t.Fatalf("item id: got %s, want %s", gotItemID, itemID)
			}
			if newStatus != enum.ItemStatusServed {
				t.Fatalf("status: got %s, want SERVED", newStatus)
			}
			return &service.AdvanceItemResult{
				Item: database.OrderItem{
					ID: itemID, OrderID: orderID, MenuItemID: uuid.New(), ItemName: "Cappuccino",
					Quantity: 1, UnitPrice: makeNumeric(t, "28000.00"), Subtotal: makeNumeric(t, "28000.00"),
					Status: enum.ItemStatusServed, CreatedAt: time.Now(),
				},
				Order: database.Order{
					ID: orderID, OrderNumber: "ORD-001", OrderType: enum.OrderTypeDineIn,
					OrderStatus: enum.OrderStatusServed, PaymentStatus: enum.PaymentStatusOutstanding,
					Subtotal: makeNumeric(t, "28000.00"), TotalAmount: makeNumeric(t, "28000.00"),
					SubmittedAt: time.Now(), UpdatedAt: time.Now(),
				},
			}, nil
		},
	}
	router := setupKitchenRouter(svc, &mockKitchenReader{})
	claims := testClaims(enum.RoleWaiter)

	rr := doAuthRequest(t, router, "POST", "/orders/mark-item-served", map[string]interface{}{
		"item_id": itemID.String(),
	}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	item := resp["item"].(map[string]interface{})
	if item["status"] != "SERVED" {
		t.Errorf("item status: got %v, want SERVED", item["status"])
	}
	order := resp["order"].(map[string]interface{})
	if order["order_status"] != "SERVED" {
		t.Errorf("order status: got %v, want SERVED", order["order_status"])
	}
}

func TestMarkItemServed_NotReadyIs409(t *testing.T) {
	svc := &mockKitchenService{
		advanceFn: func(_ context.Context, _ uuid.UUID, _ string) (*service.AdvanceItemResult, error) {
			return nil, service.ErrInvalidTransition
		},
	}
	router := setupKitchenRouter(svc, &mockKitchenReader{})
	claims := testClaims(enum.RoleWaiter)

	rr := doAuthRequest(t, router, "POST", "/orders/mark-item-served", map[string]interface{}{
		"item_id": uuid.New().String(),
	}, claims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestMarkItemServed_InvalidItemID(t *testing.T) {
	router := setupKitchenRouter(&mockKitchenService{}, &mockKitchenReader{})
	claims := testClaims(enum.RoleWaiter)

	rr := doAuthRequest(t, router, "POST", "/orders/mark-item-served", map[string]interface{}{
		"item_id": "item-one",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
