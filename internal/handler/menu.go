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
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries.
type MenuStore interface {
	ListMenu(ctx context.Context) ([]database.ListMenuRow, error)
	ListActiveCategories(ctx context.Context) ([]database.MenuCategory, error)
	CreateMenuCategory(ctx context.Context, arg database.CreateMenuCategoryParams) (database.MenuCategory, error)
	UpdateMenuCategory(ctx context.Context, arg database.UpdateMenuCategoryParams) (database.MenuCategory, error)
	DeactivateMenuCategory(ctx context.Context, id uuid.UUID) error
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeactivateMenuItem(ctx context.Context, id uuid.UUID) error
}

// MenuHandler handles the public digital menu and staff menu management.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterPublicRoutes registers the customer-facing menu endpoint.
func (h *MenuHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/menu", h.GetMenu)
}

// RegisterRoutes registers the staff menu management endpoints.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Post("/menu/categories", h.CreateCategory)
	r.Put("/menu/categories/{id}", h.UpdateCategory)
	r.Delete("/menu/categories/{id}", h.DeleteCategory)
	r.Post("/menu/items", h.CreateItem)
	r.Put("/menu/items/{id}", h.UpdateItem)
	r.Delete("/menu/items/{id}", h.DeleteItem)
}

// --- Request / Response types ---

type categoryRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DisplayOrder int32  `json:"display_order"`
	IconURL      string `json:"icon_url"`
	IsActive     *bool  `json:"is_active"`
}

type menuItemRequest struct {
	CategoryID      string          `json:"category_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	BasePrice       decimal.Decimal `json:"base_price"`
	ImageURL        string          `json:"image_url"`
	DisplayOrder    int32           `json:"display_order"`
	PreparationTime *int32          `json:"preparation_time"`
	IsAvailable     bool            `json:"is_available"`
}

type categoryResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	DisplayOrder int32     `json:"display_order"`
	IconURL      *string   `json:"icon_url,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type menuItemResponse struct {
	ID              uuid.UUID `json:"id"`
	CategoryID      uuid.UUID `json:"category_id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	BasePrice       string    `json:"base_price"`
	ImageURL        *string   `json:"image_url,omitempty"`
	DisplayOrder    int32     `json:"display_order"`
	PreparationTime *int32    `json:"preparation_time,omitempty"`
	IsAvailable     bool      `json:"is_available"`
	IsActive        bool      `json:"is_active"`
}

type menuCategoryGroup struct {
	categoryResponse
	Items []menuItemResponse `json:"items"`
}

func toCategoryResponse(c database.MenuCategory) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Description:  textPtr(c.Description),
		DisplayOrder: c.DisplayOrder,
		IconURL:      textPtr(c.IconUrl),
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
	}
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:           m.ID,
		CategoryID:   m.CategoryID,
		Name:         m.Name,
		Description:  textPtr(m.Description),
		BasePrice:    numericToString(m.BasePrice),
		ImageURL:     textPtr(m.ImageUrl),
		DisplayOrder: m.DisplayOrder,
		IsAvailable:  m.IsAvailable,
		IsActive:     m.IsActive,
	}
	if m.PreparationTime.Valid {
		prep := m.PreparationTime.Int32
		resp.PreparationTime = &prep
	}
	return resp
}

// --- Handlers ---

// GetMenu returns the digital menu grouped by category, in display order.
// Endpoint: GET /menu
func (h *MenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListActiveCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to list categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListMenu(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to list menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	byCategory := make(map[uuid.UUID][]menuItemResponse, len(categories))
	for _, i := range items {
		byCategory[i.CategoryID] = append(byCategory[i.CategoryID], toMenuItemResponse(i.MenuItem))
	}

	resp := make([]menuCategoryGroup, 0, len(categories))
	for _, c := range categories {
		group := menuCategoryGroup{categoryResponse: toCategoryResponse(c)}
		group.Items = byCategory[c.ID]
		if group.Items == nil {
			group.Items = []menuItemResponse{}
		}
		resp = append(resp, group)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCategory adds a menu category. Endpoint: POST /menu/categories
func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	category, err := h.store.CreateMenuCategory(r.Context(), database.CreateMenuCategoryParams{
		Name:         req.Name,
		Description:  textOrNull(req.Description),
		DisplayOrder: req.DisplayOrder,
		IconUrl:      textOrNull(req.IconURL),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "category already exists"})
			return
		}
		log.Printf("ERROR: failed to create category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// UpdateCategory replaces a category's attributes.
// Endpoint: PUT /menu/categories/{id}
func (h *MenuHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category id"})
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	category, err := h.store.UpdateMenuCategory(r.Context(), database.UpdateMenuCategoryParams{
		ID:           id,
		Name:         req.Name,
		Description:  textOrNull(req.Description),
		DisplayOrder: req.DisplayOrder,
		IconUrl:      textOrNull(req.IconURL),
		IsActive:     isActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
			return
		}
		log.Printf("ERROR: failed to update category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// DeleteCategory soft-deletes a category. Its items disappear from the
// public menu but historical orders keep their snapshots.
// Endpoint: DELETE /menu/categories/{id}
func (h *MenuHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category id"})
		return
	}

	if err := h.store.DeactivateMenuCategory(r.Context(), id); err != nil {
		log.Printf("ERROR: failed to deactivate category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateItem adds a menu item. Endpoint: POST /menu/items
func (h *MenuHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if !req.BasePrice.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "base_price must be > 0"})
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		CategoryID:      categoryID,
		Name:            req.Name,
		Description:     textOrNull(req.Description),
		BasePrice:       priceToNumeric(req.BasePrice),
		ImageUrl:        textOrNull(req.ImageURL),
		DisplayOrder:    req.DisplayOrder,
		PreparationTime: int4OrNull(req.PreparationTime),
		IsAvailable:     req.IsAvailable,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category does not exist"})
			return
		}
		log.Printf("ERROR: failed to create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// UpdateItem replaces a menu item's attributes. Price changes never touch
// past order items; those hold their own snapshots.
// Endpoint: PUT /menu/items/{id}
func (h *MenuHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item id"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if !req.BasePrice.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "base_price must be > 0"})
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:              id,
		CategoryID:      categoryID,
		Name:            req.Name,
		Description:     textOrNull(req.Description),
		BasePrice:       priceToNumeric(req.BasePrice),
		ImageUrl:        textOrNull(req.ImageURL),
		DisplayOrder:    req.DisplayOrder,
		PreparationTime: int4OrNull(req.PreparationTime),
		IsAvailable:     req.IsAvailable,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category does not exist"})
			return
		}
		log.Printf("ERROR: failed to update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// DeleteItem soft-deletes a menu item. Endpoint: DELETE /menu/items/{id}
func (h *MenuHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item id"})
		return
	}

	if err := h.store.DeactivateMenuItem(r.Context(), id); err != nil {
		log.Printf("ERROR: failed to deactivate menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func priceToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func int4OrNull(v *int32) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *v, Valid: true}
}
