package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kopisenja-pos/api/internal/database"
	"github.com/kopisenja-pos/api/internal/enum"
	"github.com/kopisenja-pos/api/internal/handler"
	"github.com/kopisenja-pos/api/internal/middleware"
)

// --- Mock menu store ---

type mockMenuStore struct {
	categories  []database.MenuCategory
	menuRows    []database.ListMenuRow
	items       map[uuid.UUID]database.MenuItem
	knownCatIDs map[uuid.UUID]bool
	deactivated []uuid.UUID
}

func newMockMenuStore() *mockMenuStore {
	return &mockMenuStore{
		items:       make(map[uuid.UUID]database.MenuItem),
		knownCatIDs: make(map[uuid.UUID]bool),
	}
}

func (m *mockMenuStore) ListMenu(_ context.Context) ([]database.ListMenuRow, error) {
	return m.menuRows, nil
}

func (m *mockMenuStore) ListActiveCategories(_ context.Context) ([]database.MenuCategory, error) {
	return m.categories, nil
}

func (m *mockMenuStore) CreateMenuCategory(_ context.Context, arg database.CreateMenuCategoryParams) (database.MenuCategory, error) {
	c := database.MenuCategory{
		ID: uuid.New(), Name: arg.Name, Description: arg.Description,
		DisplayOrder: arg.DisplayOrder, IconUrl: arg.IconUrl,
		IsActive: true, CreatedAt: time.Now(),
	}
	m.categories = append(m.categories, c)
	m.knownCatIDs[c.ID] = true
	return c, nil
}

func (m *mockMenuStore) UpdateMenuCategory(_ context.Context, arg database.UpdateMenuCategoryParams) (database.MenuCategory, error) {
	if !m.knownCatIDs[arg.ID] {
		return database.MenuCategory{}, pgx.ErrNoRows
	}
	return database.MenuCategory{
		ID: arg.ID, Name: arg.Name, Description: arg.Description,
		DisplayOrder: arg.DisplayOrder, IconUrl: arg.IconUrl,
		IsActive: arg.IsActive, CreatedAt: time.Now(),
	}, nil
}

func (m *mockMenuStore) DeactivateMenuCategory(_ context.Context, id uuid.UUID) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func (m *mockMenuStore) CreateMenuItem(_ context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	if !m.knownCatIDs[arg.CategoryID] {
		return database.MenuItem{}, &pgconn.PgError{Code: "23503", ConstraintName: "menu_items_category_id_fkey"}
	}
	item := database.MenuItem{
		ID: uuid.New(), CategoryID: arg.CategoryID, Name: arg.Name,
		Description: arg.Description, BasePrice: arg.BasePrice,
		ImageUrl: arg.ImageUrl, DisplayOrder: arg.DisplayOrder,
		PreparationTime: arg.PreparationTime, IsAvailable: arg.IsAvailable,
		IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *mockMenuStore) UpdateMenuItem(_ context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error) {
	item, ok := m.items[arg.ID]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	item.CategoryID = arg.CategoryID
	item.Name = arg.Name
	item.BasePrice = arg.BasePrice
	item.IsAvailable = arg.IsAvailable
	m.items[arg.ID] = item
	return item, nil
}

func (m *mockMenuStore) DeactivateMenuItem(_ context.Context, id uuid.UUID) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func setupMenuRouter(store *mockMenuStore) *chi.Mux {
	h := handler.NewMenuHandler(store)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Use(middleware.RequireRole(enum.RoleAdmin, enum.RoleManager))
		h.RegisterRoutes(r)
	})
	return r
}

func testCategory(name string, order int32) database.MenuCategory {
	return database.MenuCategory{
		ID: uuid.New(), Name: name, DisplayOrder: order,
		IsActive: true, CreatedAt: time.Now(),
	}
}

func testMenuRow(t *testing.T, categoryID uuid.UUID, categoryName, name, price string, available bool) database.ListMenuRow {
	t.Helper()
	return database.ListMenuRow{
		MenuItem: database.MenuItem{
			ID: uuid.New(), CategoryID: categoryID, Name: name,
			BasePrice: makeNumeric(t, price), IsAvailable: available,
			IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
		},
		CategoryName: categoryName,
	}
}

// --- Public menu tests ---

func TestGetMenu_GroupsByCategory(t *testing.T) {
	store := newMockMenuStore()
	coffee := testCategory("Coffee", 1)
	food := testCategory("Food", 2)
	store.categories = []database.MenuCategory{coffee, food}
	store.menuRows = []database.ListMenuRow{
		testMenuRow(t, coffee.ID, "Coffee", "Kopi Susu Senja", "25000.00", true),
		testMenuRow(t, coffee.ID, "Coffee", "Americano", "22000.00", false),
		testMenuRow(t, food.ID, "Food", "Nasi Goreng", "35000.00", true),
	}
	router := setupMenuRouter(store)

	// The digital menu is public; QR scans hit it without a token.
	rr := doRequest(t, router, "GET", "/menu", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeJSONList(t, rr)
	if len(resp) != 2 {
		t.Fatalf("categories: got %d, want 2", len(resp))
	}
	if resp[0]["name"] != "Coffee" {
		t.Errorf("first category: got %v, want Coffee", resp[0]["name"])
	}
	coffeeItems := resp[0]["items"].([]interface{})
	if len(coffeeItems) != 2 {
		t.Fatalf("coffee items: got %d, want 2", len(coffeeItems))
	}
	first := coffeeItems[0].(map[string]interface{})
	if first["base_price"] != "25000.00" {
		t.Errorf("base_price: got %v, want 25000.00", first["base_price"])
	}
	second := coffeeItems[1].(map[string]interface{})
	if second["is_available"] != false {
		t.Error("sold-out items stay on the menu flagged unavailable")
	}
}

func TestGetMenu_EmptyCategoryHasEmptyItems(t *testing.T) {
	store := newMockMenuStore()
	store.categories = []database.MenuCategory{testCategory("Desserts", 3)}
	router := setupMenuRouter(store)

	rr := doRequest(t, router, "GET", "/menu", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeJSONList(t, rr)
	items, ok := resp[0]["items"].([]interface{})
	if !ok {
		t.Fatalf("items must be an array, got %T", resp[0]["items"])
	}
	if len(items) != 0 {
		t.Errorf("items: got %d, want 0", len(items))
	}
}

// --- Category management tests ---

func TestCreateCategory_HappyPath(t *testing.T) {
	store := newMockMenuStore()
	router := setupMenuRouter(store)
	claims := testClaims(enum.RoleManager)

	rr := doAuthRequest(t, router, "POST", "/menu/categories", map[string]interface{}{
		"name":          "Non-Coffee",
		"display_order": 2,
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	if resp["name"] != "Non-Coffee" {
		t.Errorf("name: got %v, want Non-Coffee", resp["name"])
	}
	if resp["is_active"] != true {
		t.Errorf("new categories should be active, got %v", resp["is_active"])
	}
}

func TestCreateCategory_MissingNameIs400(t *testing.T) {
	router := setupMenuRouter(newMockMenuStore())
	claims := testClaims(enum.RoleManager)

	rr := doAuthRequest(t, router, "POST", "/menu/categories", map[string]interface{}{
		"display_order": 1,
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdateCategory_NotFound(t *testing.T) {
	router := setupMenuRouter(newMockMenuStore())
	claims := testClaims(enum.RoleAdmin)

	rr := doAuthRequest(t, router, "PUT", "/menu/categories/"+uuid.New().String(), map[string]interface{}{
		"name": "Coffee",
	}, claims)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDeleteCategory_SoftDeletes(t *testing.T) {
	store := newMockMenuStore()
	id := uuid.New()
	store.knownCatIDs[id] = true
	router := setupMenuRouter(store)
	claims := testClaims(enum.RoleManager)

	rr := doAuthRequest(t, router, "DELETE", "/menu/categories/"+id.String(), nil, claims)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	if len(store.deactivated) != 1 || store.deactivated[0] != id {
		t.Errorf("expected deactivation of %s, got %v", id, store.deactivated)
	}
}

// --- Item management tests ---

func TestCreateItem_HappyPath(t *testing.T) {
	store := newMockMenuStore()
	categoryID := uuid.New()
	store.knownCatIDs[categoryID] = true
	router := setupMenuRouter(store)
	claims := testClaims(enum.RoleManager)

	rr := doAuthRequest(t, router, "POST", "/menu/items", map[string]interface{}{
		"category_id":      categoryID.String(),
		"name":             "Es Kopi Gula Aren",
		"base_price":       "28000",
		"preparation_time": 5,
		"is_available":     true,
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	if resp["base_price"] != "28000.00" {
		t.Errorf("base_price: got %v, want 28000.00", resp["base_price"])
	}
	if resp["preparation_time"] != float64(5) {
		t.Errorf("preparation_time: got %v, want 5", resp["preparation_time"])
	}
}

func TestCreateItem_NonPositivePriceIs400(t *testing.T) {
	store := newMockMenuStore()
	categoryID := uuid.New()
	store.knownCatIDs[categoryID] = true
	router := setupMenuRouter(store)
	claims := testClaims(enum.RoleManager)

	rr := doAuthRequest(t, router, "POST", "/menu/items", map[string]interface{}{
		"category_id": categoryID.String(),
		"name":        "Gratis",
		"base_price":  "0",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCreateItem_UnknownCategoryIs400(t *testing.T) {
	router := setupMenuRouter(newMockMenuStore())
	claims := testClaims(enum.RoleManager)

	rr := doAuthRequest(t, router, "POST", "/menu/items", map[string]interface{}{
		"category_id": uuid.New().String(),
		"name":        "Croissant",
		"base_price":  "18000",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdateItem_TogglesAvailability(t *testing.T) {
	store := newMockMenuStore()
	categoryID := uuid.New()
	store.knownCatIDs[categoryID] = true
	item, err := store.CreateMenuItem(context.Background(), database.CreateMenuItemParams{
		CategoryID: categoryID, Name: "Kopi Susu Senja",
		BasePrice: makeNumeric(t, "25000.00"), IsAvailable: true,
	})
	if err != nil {
		t.Fatalf("seeding item: %v", err)
	}
	router := setupMenuRouter(store)
	claims := testClaims(enum.RoleManager)

	rr := doAuthRequest(t, router, "PUT", "/menu/items/"+item.ID.String(), map[string]interface{}{
		"category_id":  categoryID.String(),
		"name":         "Kopi Susu Senja",
		"base_price":   "25000",
		"is_available": false,
	}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	if resp["is_available"] != false {
		t.Errorf("is_available: got %v, want false", resp["is_available"])
	}
}

func TestMenuManagement_RequiresManagerRole(t *testing.T) {
	router := setupMenuRouter(newMockMenuStore())
	claims := testClaims(enum.RoleKitchen)

	rr := doAuthRequest(t, router, "POST", "/menu/categories", map[string]interface{}{
		"name": "Snacks",
	}, claims)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}
