package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kopisenja-pos/api/internal/database"
	mw "github.com/kopisenja-pos/api/internal/middleware"
	"github.com/kopisenja-pos/api/internal/service"
	"github.com/kopisenja-pos/api/internal/ws"
	"github.com/shopspring/decimal"
)

// PaymentServicer is the slice of the payment service the handler uses.
type PaymentServicer interface {
	ProcessPayment(ctx context.Context, req service.ProcessPaymentRequest) (*service.ProcessPaymentResult, error)
	RefundOrder(ctx context.Context, orderID uuid.UUID) (*service.RefundResult, error)
}

// PaymentReader defines the database methods needed for payment lookups.
// Satisfied by *database.Queries.
type PaymentReader interface {
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// PaymentsHandler handles settlement and refund endpoints.
type PaymentsHandler struct {
	svc   PaymentServicer
	store PaymentReader
	hub   *ws.Hub
}

// NewPaymentsHandler creates a new PaymentsHandler. hub may be nil in tests.
func NewPaymentsHandler(svc PaymentServicer, store PaymentReader, hub *ws.Hub) *PaymentsHandler {
	return &PaymentsHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers cashier payment endpoints on the given Chi router.
func (h *PaymentsHandler) RegisterRoutes(r chi.Router) {
	r.Post("/payment", h.Process)
	r.Get("/payment/order/{id}", h.ListByOrder)
}

// RegisterManagerRoutes registers the refund endpoint; refunds need a
// manager or admin.
func (h *PaymentsHandler) RegisterManagerRoutes(r chi.Router) {
	r.Post("/payment/refund", h.Refund)
}

// --- Request / Response types ---

type processPaymentRequest struct {
	OrderID        string          `json:"order_id"`
	PaymentMethod  string          `json:"payment_method"`
	Amount         decimal.Decimal `json:"amount"`
	AmountTendered decimal.Decimal `json:"amount_tendered"`
}

type refundRequest struct {
	OrderID string `json:"order_id"`
}

type processPaymentResponse struct {
	Success       bool            `json:"success"`
	PaymentNumber string          `json:"payment_number"`
	ChangeAmount  string          `json:"change_amount"`
	Payment       paymentResponse `json:"payment"`
	Order         orderResponse   `json:"order"`
}

type refundResponse struct {
	Order         orderResponse `json:"order"`
	RefundedCount int64         `json:"refunded_count"`
}

// --- Handlers ---

// Process records a payment against an order's outstanding balance.
// Endpoint: POST /payment
func (h *PaymentsHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req processPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id"})
		return
	}

	var processedBy uuid.UUID
	if claims := mw.ClaimsFromContext(r.Context()); claims != nil {
		processedBy = claims.StaffID
	}

	result, err := h.svc.ProcessPayment(r.Context(), service.ProcessPaymentRequest{
		OrderID:        orderID,
		PaymentMethod:  req.PaymentMethod,
		Amount:         req.Amount,
		AmountTendered: req.AmountTendered,
		ProcessedBy:    processedBy,
	})
	if err != nil {
		h.writePaymentError(w, err)
		return
	}

	resp := processPaymentResponse{
		Success:       true,
		PaymentNumber: result.Payment.PaymentNumber,
		ChangeAmount:  result.ChangeAmount.StringFixed(2),
		Payment:       toPaymentResponse(result.Payment),
		Order:         toOrderResponse(result.Order),
	}
	publishEvent(h.hub, "order.paid", resp.Order, ws.ChannelOrders)
	writeJSON(w, http.StatusCreated, resp)
}

// Refund reverses every completed payment of a paid order.
// Endpoint: POST /payment/refund
func (h *PaymentsHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id"})
		return
	}

	result, err := h.svc.RefundOrder(r.Context(), orderID)
	if err != nil {
		h.writePaymentError(w, err)
		return
	}

	resp := refundResponse{
		Order:         toOrderResponse(result.Order),
		RefundedCount: result.RefundedCount,
	}
	publishEvent(h.hub, "order.refunded", resp.Order, ws.ChannelOrders)
	writeJSON(w, http.StatusOK, resp)
}

// ListByOrder returns an order's payment ledger.
// Endpoint: GET /payment/order/{id}
func (h *PaymentsHandler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: failed to list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Error mapping ---

func (h *PaymentsHandler) writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInsufficientTender):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrAmountExceedsBalance),
		errors.Is(err, service.ErrOrderAlreadyPaid),
		errors.Is(err, service.ErrOrderRefunded),
		errors.Is(err, service.ErrOrderNotPaid),
		errors.Is(err, service.ErrNothingToRefund):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: failed to process payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
