package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kopisenja-pos/api/internal/database"
	"github.com/kopisenja-pos/api/internal/enum"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries.
type TableStore interface {
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListTables(ctx context.Context) ([]database.ListTablesRow, error)
	UpdateTable(ctx context.Context, arg database.UpdateTableParams) (database.Table, error)
	DeleteTable(ctx context.Context, id uuid.UUID) error
	CountOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error)
}

// TablesHandler handles floor-plan table management.
type TablesHandler struct {
	store   TableStore
	baseURL string
}

// NewTablesHandler creates a new TablesHandler. baseURL is the customer-facing
// origin embedded in QR links.
func NewTablesHandler(store TableStore, baseURL string) *TablesHandler {
	return &TablesHandler{store: store, baseURL: baseURL}
}

// RegisterRoutes registers the table read endpoints every staff role uses.
func (h *TablesHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tables", h.List)
	r.Get("/tables/{id}", h.Get)
}

// RegisterManagerRoutes registers the floor-plan mutations.
func (h *TablesHandler) RegisterManagerRoutes(r chi.Router) {
	r.Post("/tables", h.Create)
	r.Put("/tables/{id}", h.Update)
	r.Delete("/tables/{id}", h.Delete)
}

// --- Request / Response types ---

type createTableRequest struct {
	TableNumber  string `json:"table_number"`
	Capacity     int32  `json:"capacity"`
	LocationZone string `json:"location_zone"`
}

type updateTableRequest struct {
	TableNumber  string `json:"table_number"`
	Capacity     int32  `json:"capacity"`
	LocationZone string `json:"location_zone"`
	IsActive     bool   `json:"is_active"`
	IsOccupied   bool   `json:"is_occupied"`
}

type tableResponse struct {
	ID           uuid.UUID `json:"id"`
	TableNumber  string    `json:"table_number"`
	QrCode       string    `json:"qr_code"`
	Capacity     int32     `json:"capacity"`
	LocationZone *string   `json:"location_zone,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsOccupied   bool      `json:"is_occupied"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type tableListResponse struct {
	tableResponse
	OutstandingAmount string `json:"outstanding_amount"`
	OpenOrderCount    int64  `json:"open_order_count"`
}

func toTableResponse(t database.Table) tableResponse {
	return tableResponse{
		ID:           t.ID,
		TableNumber:  t.TableNumber,
		QrCode:       t.QrCode,
		Capacity:     t.Capacity,
		LocationZone: textPtr(t.LocationZone),
		IsActive:     t.IsActive,
		IsOccupied:   t.IsOccupied,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// --- Handlers ---

// List returns every table with its open-order exposure.
// Endpoint: GET /tables
func (h *TablesHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableListResponse, 0, len(tables))
	for _, t := range tables {
		resp = append(resp, tableListResponse{
			tableResponse:     toTableResponse(t.Table),
			OutstandingAmount: numericToString(t.OutstandingAmount),
			OpenOrderCount:    t.OpenOrderCount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one table. Endpoint: GET /tables/{id}
func (h *TablesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table id"})
		return
	}

	table, err := h.store.GetTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: failed to get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Create adds a table and generates its QR link.
// Endpoint: POST /tables
func (h *TablesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.TableNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_number is required"})
		return
	}
	if req.TableNumber == enum.TakeawayTableNumber {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_number is reserved"})
		return
	}
	if req.Capacity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "capacity must be > 0"})
		return
	}

	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		TableNumber:  req.TableNumber,
		QrCode:       h.qrLink(req.TableNumber),
		Capacity:     req.Capacity,
		LocationZone: textOrNull(req.LocationZone),
		IsActive:     true,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table number already exists"})
			return
		}
		log.Printf("ERROR: failed to create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

// Update replaces a table's attributes. Renumbering regenerates the QR link.
// Endpoint: PUT /tables/{id}
func (h *TablesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table id"})
		return
	}

	var req updateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.TableNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_number is required"})
		return
	}
	if req.Capacity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "capacity must be > 0"})
		return
	}

	existing, err := h.store.GetTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: failed to get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// The reserved takeaway table must stay intact; every takeaway ticket
	// routes through it.
	if existing.TableNumber == enum.TakeawayTableNumber && req.TableNumber != enum.TakeawayTableNumber {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "the takeaway table cannot be renumbered"})
		return
	}

	table, err := h.store.UpdateTable(r.Context(), database.UpdateTableParams{
		ID:           id,
		TableNumber:  req.TableNumber,
		QrCode:       h.qrLink(req.TableNumber),
		Capacity:     req.Capacity,
		LocationZone: textOrNull(req.LocationZone),
		IsActive:     req.IsActive,
		IsOccupied:   req.IsOccupied,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table number already exists"})
			return
		}
		log.Printf("ERROR: failed to update table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Delete removes a table. Refused while the table has open orders.
// Endpoint: DELETE /tables/{id}
func (h *TablesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table id"})
		return
	}

	table, err := h.store.GetTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: failed to get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if table.TableNumber == enum.TakeawayTableNumber {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "the takeaway table cannot be deleted"})
		return
	}

	open, err := h.store.CountOpenOrdersByTable(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: failed to count open orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if open > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "table has open orders"})
		return
	}

	if err := h.store.DeleteTable(r.Context(), id); err != nil {
		log.Printf("ERROR: failed to delete table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// qrLink builds the URL the table's QR code encodes. Scanning it opens the
// digital menu for that table.
func (h *TablesHandler) qrLink(tableNumber string) string {
	return fmt.Sprintf("%s/menu/%s", h.baseURL, tableNumber)
}
