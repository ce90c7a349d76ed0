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
	"github.com/kopisenja-pos/api/internal/enum"
	"github.com/kopisenja-pos/api/internal/service"
	"github.com/kopisenja-pos/api/internal/ws"
)

// KitchenServicer is the slice of the kitchen service the handler uses.
type KitchenServicer interface {
	AdvanceItemStatus(ctx context.Context, itemID uuid.UUID, newStatus string) (*service.AdvanceItemResult, error)
	MarkAllReadyServed(ctx context.Context, orderID uuid.UUID) (*service.MarkAllReadyServedResult, error)
}

// KitchenReader defines the database methods needed for the kitchen display.
// Satisfied by *database.Queries.
type KitchenReader interface {
	ListKitchenOrders(ctx context.Context) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// KitchenHandler handles the kitchen display and item status endpoints.
type KitchenHandler struct {
	svc   KitchenServicer
	store KitchenReader
	hub   *ws.Hub
}

// NewKitchenHandler creates a new KitchenHandler. hub may be nil in tests.
func NewKitchenHandler(svc KitchenServicer, store KitchenReader, hub *ws.Hub) *KitchenHandler {
	return &KitchenHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers kitchen endpoints on the given Chi router.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/kitchen/orders", h.ListOrders)
	r.Post("/kitchen/update-status", h.UpdateItemStatus)
	r.Post("/orders/mark-item-served", h.MarkItemServed)
	r.Post("/orders/mark-all-ready-served", h.MarkAllReadyServed)
}

// --- Request / Response types ---

type updateItemStatusRequest struct {
	ItemID string `json:"item_id"`
	Status string `json:"status"`
}

type markItemServedRequest struct {
	ItemID string `json:"item_id"`
}

type markAllServedRequest struct {
	OrderID string `json:"order_id"`
}

type kitchenOrderResponse struct {
	Order orderResponse       `json:"order"`
	Items []orderItemResponse `json:"items"`
}

type itemUpdatedResponse struct {
	Item  orderItemResponse `json:"item"`
	Order orderResponse     `json:"order"`
}

type markAllServedResponse struct {
	ServedCount int64         `json:"served_count"`
	Order       orderResponse `json:"order"`
}

// --- Handlers ---

// ListOrders returns the kitchen queue: open orders with their items,
// oldest first. Endpoint: GET /kitchen/orders
func (h *KitchenHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListKitchenOrders(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to list kitchen orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]kitchenOrderResponse, 0, len(orders))
	for _, o := range orders {
		items, err := h.store.ListOrderItemsByOrder(r.Context(), o.ID)
		if err != nil {
			log.Printf("ERROR: failed to list order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}

		entry := kitchenOrderResponse{
			Order: toOrderResponse(o),
			Items: make([]orderItemResponse, 0, len(items)),
		}
		for _, i := range items {
			entry.Items = append(entry.Items, toOrderItemResponse(i))
		}
		resp = append(resp, entry)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateItemStatus moves one order item to a new status and returns the
// item plus the rederived parent order. Endpoint: POST /kitchen/update-status
func (h *KitchenHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	var req updateItemStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_id"})
		return
	}

	result, err := h.svc.AdvanceItemStatus(r.Context(), itemID, req.Status)
	if err != nil {
		h.writeKitchenError(w, err)
		return
	}

	resp := itemUpdatedResponse{
		Item:  toOrderItemResponse(result.Item),
		Order: toOrderResponse(result.Order),
	}
	publishEvent(h.hub, "item.updated", resp, ws.ChannelKitchen, ws.ChannelOrders)
	writeJSON(w, http.StatusOK, resp)
}

// MarkItemServed is the waiter shortcut that advances one item to SERVED
// without spelling out the status. Endpoint: POST /orders/mark-item-served
func (h *KitchenHandler) MarkItemServed(w http.ResponseWriter, r *http.Request) {
	var req markItemServedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_id"})
		return
	}

	result, err := h.svc.AdvanceItemStatus(r.Context(), itemID, enum.ItemStatusServed)
	if err != nil {
		h.writeKitchenError(w, err)
		return
	}

	resp := itemUpdatedResponse{
		Item:  toOrderItemResponse(result.Item),
		Order: toOrderResponse(result.Order),
	}
	publishEvent(h.hub, "item.updated", resp, ws.ChannelKitchen, ws.ChannelOrders)
	writeJSON(w, http.StatusOK, resp)
}

// MarkAllReadyServed bulk-serves every READY item of an order.
// Endpoint: POST /orders/mark-all-ready-served
func (h *KitchenHandler) MarkAllReadyServed(w http.ResponseWriter, r *http.Request) {
	var req markAllServedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id"})
		return
	}

	result, err := h.svc.MarkAllReadyServed(r.Context(), orderID)
	if err != nil {
		h.writeKitchenError(w, err)
		return
	}

	resp := markAllServedResponse{
		ServedCount: result.ServedCount,
		Order:       toOrderResponse(result.Order),
	}
	publishEvent(h.hub, "order.updated", resp.Order, ws.ChannelOrders, ws.ChannelKitchen)
	writeJSON(w, http.StatusOK, resp)
}

// --- Error mapping ---

func (h *KitchenHandler) writeKitchenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidItemStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrItemAlreadyFinal),
		errors.Is(err, service.ErrOrderNotModifiable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: failed to update item status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
