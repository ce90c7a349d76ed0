package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopisenja-pos/api/internal/database"
	"github.com/kopisenja-pos/api/internal/enum"
	"github.com/kopisenja-pos/api/internal/service"
	"github.com/kopisenja-pos/api/internal/ws"
	"github.com/shopspring/decimal"
)

// OrderSubmitter is the slice of the order service the handler uses.
type OrderSubmitter interface {
	SubmitItems(ctx context.Context, req service.SubmitItemsRequest) (*service.SubmitResult, error)
	SubmitTakeaway(ctx context.Context, req service.SubmitTakeawayRequest) (*service.SubmitResult, error)
}

// OrderReader defines the database methods needed for order reads.
// Satisfied by *database.Queries.
type OrderReader interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context) ([]database.Order, error)
	ListOutstandingOrders(ctx context.Context) ([]database.Order, error)
	GetOutstandingStats(ctx context.Context) (database.GetOutstandingStatsRow, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// OrdersHandler handles order submission and lookup endpoints.
type OrdersHandler struct {
	svc   OrderSubmitter
	store OrderReader
	hub   *ws.Hub
}

// NewOrdersHandler creates a new OrdersHandler. hub may be nil in tests.
func NewOrdersHandler(svc OrderSubmitter, store OrderReader, hub *ws.Hub) *OrdersHandler {
	return &OrdersHandler{svc: svc, store: store, hub: hub}
}

// RegisterPublicRoutes registers the customer-facing submission endpoints.
// Customers order from the table QR page without authenticating.
func (h *OrdersHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.Submit)
	r.Post("/orders/takeaway", h.SubmitTakeaway)
}

// RegisterRoutes registers the staff-facing order endpoints.
func (h *OrdersHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/outstanding", h.Outstanding)
	r.Get("/orders/{id}", h.Get)
}

// --- Request / Response types ---

type submitOrderRequest struct {
	TableID             string            `json:"table_id"`
	OrderType           string            `json:"order_type"`
	SpecialInstructions string            `json:"special_instructions"`
	Items               []submitItemInput `json:"items"`
}

type submitItemInput struct {
	MenuItemID          string `json:"menu_item_id"`
	Quantity            int32  `json:"quantity"`
	SpecialInstructions string `json:"special_instructions"`
}

type submitTakeawayRequest struct {
	CustomerName        string            `json:"customer_name"`
	CustomerPhone       string            `json:"customer_phone"`
	SpecialInstructions string            `json:"special_instructions"`
	Items               []submitItemInput `json:"items"`
}

type orderResponse struct {
	ID                  uuid.UUID  `json:"id"`
	OrderNumber         string     `json:"order_number"`
	TableID             *uuid.UUID `json:"table_id,omitempty"`
	CustomerID          *uuid.UUID `json:"customer_id,omitempty"`
	OrderType           string     `json:"order_type"`
	OrderStatus         string     `json:"order_status"`
	PaymentStatus       string     `json:"payment_status"`
	Subtotal            string     `json:"subtotal"`
	TotalAmount         string     `json:"total_amount"`
	SpecialInstructions *string    `json:"special_instructions,omitempty"`
	SubmittedAt         time.Time  `json:"submitted_at"`
	PreparingAt         *time.Time `json:"preparing_at,omitempty"`
	ReadyAt             *time.Time `json:"ready_at,omitempty"`
	ServedAt            *time.Time `json:"served_at,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type orderItemResponse struct {
	ID                  uuid.UUID  `json:"id"`
	OrderID             uuid.UUID  `json:"order_id"`
	MenuItemID          uuid.UUID  `json:"menu_item_id"`
	ItemName            string     `json:"item_name"`
	Quantity            int32      `json:"quantity"`
	UnitPrice           string     `json:"unit_price"`
	Subtotal            string     `json:"subtotal"`
	Status              string     `json:"status"`
	SpecialInstructions *string    `json:"special_instructions,omitempty"`
	PreparedAt          *time.Time `json:"prepared_at,omitempty"`
	ReadyAt             *time.Time `json:"ready_at,omitempty"`
	ServedAt            *time.Time `json:"served_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

type paymentResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrderID        uuid.UUID  `json:"order_id"`
	PaymentNumber  string     `json:"payment_number"`
	PaymentMethod  string     `json:"payment_method"`
	Amount         string     `json:"amount"`
	AmountTendered *string    `json:"amount_tendered,omitempty"`
	ChangeAmount   string     `json:"change_amount"`
	PaymentStatus  string     `json:"payment_status"`
	ProcessedBy    *uuid.UUID `json:"processed_by,omitempty"`
	ProcessedAt    time.Time  `json:"processed_at"`
}

type submitOrderResponse struct {
	Success     bool                `json:"success"`
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	IsNewOrder  bool                `json:"is_new_order"`
	Order       orderResponse       `json:"order"`
	Items       []orderItemResponse `json:"items"`
}

type orderDetailResponse struct {
	Order    orderResponse       `json:"order"`
	Items    []orderItemResponse `json:"items"`
	Payments []paymentResponse   `json:"payments"`
}

type outstandingResponse struct {
	TotalOutstanding int64           `json:"total_outstanding"`
	TotalAmount      string          `json:"total_amount"`
	TodayOrders      int64           `json:"today_orders"`
	Orders           []orderResponse `json:"orders"`
}

// --- Handlers ---

// Submit appends items to a table's open order, creating the order if the
// table has none. Endpoint: POST /orders
func (h *OrdersHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// order_type is optional; TAKEAWAY routes to the counter queue the same
	// way the table_id sentinel does.
	tableID := req.TableID
	switch req.OrderType {
	case "", enum.OrderTypeDineIn:
	case enum.OrderTypeTakeaway:
		tableID = service.TakeawayTableID
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_type"})
		return
	}

	result, err := h.svc.SubmitItems(r.Context(), service.SubmitItemsRequest{
		TableID:             tableID,
		SpecialInstructions: req.SpecialInstructions,
		Items:               toServiceItems(req.Items),
	})
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	h.broadcastSubmit(result)
	writeJSON(w, http.StatusCreated, toSubmitResponse(result))
}

// SubmitTakeaway creates a counter order for a walk-in customer.
// Endpoint: POST /orders/takeaway
func (h *OrdersHandler) SubmitTakeaway(w http.ResponseWriter, r *http.Request) {
	var req submitTakeawayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.SubmitTakeaway(r.Context(), service.SubmitTakeawayRequest{
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		SpecialInstructions: req.SpecialInstructions,
		Items:               toServiceItems(req.Items),
	})
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	h.broadcastSubmit(result)
	writeJSON(w, http.StatusCreated, toSubmitResponse(result))
}

// List returns every order, newest first. Endpoint: GET /orders
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListOrders(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one order with its items and payment ledger.
// Endpoint: GET /orders/{id}
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: failed to get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: failed to list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: failed to list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	detail := orderDetailResponse{
		Order:    toOrderResponse(order),
		Items:    make([]orderItemResponse, 0, len(items)),
		Payments: make([]paymentResponse, 0, len(payments)),
	}
	for _, i := range items {
		detail.Items = append(detail.Items, toOrderItemResponse(i))
	}
	for _, p := range payments {
		detail.Payments = append(detail.Payments, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, detail)
}

// Outstanding returns the cashier queue: unpaid orders with header stats.
// Endpoint: GET /orders/outstanding
func (h *OrdersHandler) Outstanding(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetOutstandingStats(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to get outstanding stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	orders, err := h.store.ListOutstandingOrders(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to list outstanding orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := outstandingResponse{
		TotalOutstanding: stats.TotalOutstanding,
		TotalAmount:      numericToString(stats.TotalAmount),
		TodayOrders:      stats.TodayOrders,
		Orders:           make([]orderResponse, 0, len(orders)),
	}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Error mapping ---

func (h *OrdersHandler) writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidTableID),
		errors.Is(err, service.ErrInvalidMenuItemID),
		errors.Is(err, service.ErrCustomerName):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrTableNotFound),
		errors.Is(err, service.ErrMenuItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrTableInactive),
		errors.Is(err, service.ErrMenuItemUnavailable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: failed to submit order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// --- Broadcast ---

func (h *OrdersHandler) broadcastSubmit(result *service.SubmitResult) {
	eventType := "order.updated"
	if result.IsNewOrder {
		eventType = "order.submitted"
	}
	publishEvent(h.hub, eventType, toSubmitResponse(result), ws.ChannelOrders, ws.ChannelKitchen)
}

// publishEvent marshals payload once and fans it out to the given channels.
// A nil hub (tests) is a no-op.
func publishEvent(hub *ws.Hub, eventType string, payload interface{}, channels ...string) {
	if hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: failed to marshal %s event: %v", eventType, err)
		return
	}
	for _, ch := range channels {
		hub.Broadcast(ch, ws.Event{Type: eventType, Payload: data})
	}
}

// --- Response mapping helpers ---

func toServiceItems(items []submitItemInput) []service.SubmitItemRequest {
	out := make([]service.SubmitItemRequest, 0, len(items))
	for _, i := range items {
		out = append(out, service.SubmitItemRequest{
			MenuItemID:          i.MenuItemID,
			Quantity:            i.Quantity,
			SpecialInstructions: i.SpecialInstructions,
		})
	}
	return out
}

func toSubmitResponse(result *service.SubmitResult) submitOrderResponse {
	resp := submitOrderResponse{
		Success:     true,
		OrderID:     result.Order.ID,
		OrderNumber: result.Order.OrderNumber,
		IsNewOrder:  result.IsNewOrder,
		Order:       toOrderResponse(result.Order),
		Items:       make([]orderItemResponse, 0, len(result.Items)),
	}
	for _, i := range result.Items {
		resp.Items = append(resp.Items, toOrderItemResponse(i))
	}
	return resp
}

func toOrderResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		TableID:             uuidPtr(o.TableID),
		CustomerID:          uuidPtr(o.CustomerID),
		OrderType:           o.OrderType,
		OrderStatus:         o.OrderStatus,
		PaymentStatus:       o.PaymentStatus,
		Subtotal:            numericToString(o.Subtotal),
		TotalAmount:         numericToString(o.TotalAmount),
		SpecialInstructions: textPtr(o.SpecialInstructions),
		SubmittedAt:         o.SubmittedAt,
		PreparingAt:         timePtr(o.PreparingAt),
		ReadyAt:             timePtr(o.ReadyAt),
		ServedAt:            timePtr(o.ServedAt),
		UpdatedAt:           o.UpdatedAt,
	}
}

func toOrderItemResponse(i database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:                  i.ID,
		OrderID:             i.OrderID,
		MenuItemID:          i.MenuItemID,
		ItemName:            i.ItemName,
		Quantity:            i.Quantity,
		UnitPrice:           numericToString(i.UnitPrice),
		Subtotal:            numericToString(i.Subtotal),
		Status:              i.Status,
		SpecialInstructions: textPtr(i.SpecialInstructions),
		PreparedAt:          timePtr(i.PreparedAt),
		ReadyAt:             timePtr(i.ReadyAt),
		ServedAt:            timePtr(i.ServedAt),
		CreatedAt:           i.CreatedAt,
	}
}

func toPaymentResponse(p database.Payment) paymentResponse {
	resp := paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		PaymentNumber: p.PaymentNumber,
		PaymentMethod: p.PaymentMethod,
		Amount:        numericToString(p.Amount),
		ChangeAmount:  numericToString(p.ChangeAmount),
		PaymentStatus: p.PaymentStatus,
		ProcessedBy:   uuidPtr(p.ProcessedBy),
		ProcessedAt:   p.ProcessedAt,
	}
	if p.AmountTendered.Valid {
		tendered := numericToString(p.AmountTendered)
		resp.AmountTendered = &tendered
	}
	return resp
}

// numericToString renders a money column with two decimal places.
// Falls back to "0.00" for nulls.
func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
