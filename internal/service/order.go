package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopisenja-pos/api/internal/database"
	"github.com/kopisenja-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// TakeawayTableID is the sentinel clients send instead of a table UUID
// when ordering at the counter.
const TakeawayTableID = "takeaway"

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidTableID      = errors.New("invalid table_id")
	ErrTableNotFound       = errors.New("table not found")
	ErrTableInactive       = errors.New("table is not active")
	ErrInvalidMenuItemID   = errors.New("invalid menu_item_id")
	ErrMenuItemNotFound    = errors.New("menu item not found")
	ErrMenuItemUnavailable = errors.New("menu item is not available")
	ErrCustomerName        = errors.New("customer_name is required for takeaway orders")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to submit orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetTableByNumber(ctx context.Context, tableNumber string) (database.Table, error)
	GetOpenOrderForUpdate(ctx context.Context, tableID uuid.UUID) (database.Order, error)
	GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	AddOrderTotals(ctx context.Context, arg database.AddOrderTotalsParams) (database.Order, error)
	GetCustomerByPhone(ctx context.Context, phoneNumber string) (database.Customer, error)
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// SubmitItemsRequest is the validated input for a table submission.
type SubmitItemsRequest struct {
	TableID             string // table UUID, or TakeawayTableID
	SpecialInstructions string
	Items               []SubmitItemRequest
}

// SubmitItemRequest is a single line in the submission.
type SubmitItemRequest struct {
	MenuItemID          string
	Quantity            int32
	SpecialInstructions string
}

// SubmitTakeawayRequest is a counter order with customer details.
type SubmitTakeawayRequest struct {
	CustomerName        string
	CustomerPhone       string
	SpecialInstructions string
	Items               []SubmitItemRequest
}

// SubmitResult reports the order the items landed on. IsNewOrder is false
// when the submission merged into the table's existing open order.
type SubmitResult struct {
	Order      database.Order
	Items      []database.OrderItem
	IsNewOrder bool
}

// OrderService handles order submission business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// processedItem holds a validated order item ready to insert.
type processedItem struct {
	params database.CreateOrderItemParams
}

// SubmitItems appends items to the table's open order, creating the order
// first if the table has none. Retries up to maxOrderNumberRetries times on
// order_number unique constraint violations (race condition where concurrent
// transactions generate the same number).
func (s *OrderService) SubmitItems(ctx context.Context, req SubmitItemsRequest) (*SubmitResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	takeaway := req.TableID == TakeawayTableID
	var tableID uuid.UUID
	if !takeaway {
		var err error
		tableID, err = uuid.Parse(req.TableID)
		if err != nil {
			return nil, ErrInvalidTableID
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.submitItemsTx(ctx, req, tableID, takeaway)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// SubmitTakeaway creates a counter order tied to a customer record.
// Takeaway tickets never merge: every call opens a fresh order.
func (s *OrderService) SubmitTakeaway(ctx context.Context, req SubmitTakeawayRequest) (*SubmitResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.CustomerName == "" {
		return nil, ErrCustomerName
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.submitTakeawayTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

func (s *OrderService) submitItemsTx(ctx context.Context, req SubmitItemsRequest, tableID uuid.UUID, takeaway bool) (*SubmitResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Resolve the table ---
	var table database.Table
	if takeaway {
		table, err = store.GetTableByNumber(ctx, enum.TakeawayTableNumber)
	} else {
		table, err = store.GetTable(ctx, tableID)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	if !table.IsActive {
		return nil, ErrTableInactive
	}

	// --- Find or create the open order ---
	// GetOpenOrderForUpdate locks the row, so a concurrent submission for the
	// same table waits here instead of creating a duplicate order. The
	// takeaway sentinel resolves to the reserved TAKEAWAY table and shares
	// its open-order queue exactly like a physical table.
	var order database.Order
	isNew := false
	order, err = store.GetOpenOrderForUpdate(ctx, table.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		isNew = true
	} else if err != nil {
		return nil, fmt.Errorf("get open order: %w", err)
	}

	// --- Process items: validate + snapshot prices ---
	items, delta, err := s.processItems(ctx, store, req.Items)
	if err != nil {
		return nil, err
	}

	if isNew {
		orderType := enum.OrderTypeDineIn
		orderNumber := dineInOrderNumber()
		if takeaway {
			orderType = enum.OrderTypeTakeaway
			orderNumber = takeawayOrderNumber()
		}
		order, err = store.CreateOrder(ctx, database.CreateOrderParams{
			OrderNumber:         orderNumber,
			TableID:             pgtype.UUID{Bytes: table.ID, Valid: true},
			OrderType:           orderType,
			OrderStatus:         enum.OrderStatusSubmitted,
			PaymentStatus:       enum.PaymentStatusOutstanding,
			Subtotal:            decimalToNumeric(delta),
			TotalAmount:         decimalToNumeric(delta),
			SpecialInstructions: textOrNull(req.SpecialInstructions),
		})
		if err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
	}

	// --- Insert items ---
	var inserted []database.OrderItem
	for _, pi := range items {
		pi.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		inserted = append(inserted, item)
	}

	// --- Bump totals on merge ---
	if !isNew {
		order, err = store.AddOrderTotals(ctx, database.AddOrderTotalsParams{
			ID:     order.ID,
			Amount: decimalToNumeric(delta),
		})
		if err != nil {
			return nil, fmt.Errorf("add order totals: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &SubmitResult{Order: order, Items: inserted, IsNewOrder: isNew}, nil
}

func (s *OrderService) submitTakeawayTx(ctx context.Context, req SubmitTakeawayRequest) (*SubmitResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	table, err := store.GetTableByNumber(ctx, enum.TakeawayTableNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get takeaway table: %w", err)
	}

	// --- Find or create the customer ---
	customerID := pgtype.UUID{}
	if req.CustomerPhone != "" {
		customer, err := store.GetCustomerByPhone(ctx, req.CustomerPhone)
		if errors.Is(err, pgx.ErrNoRows) {
			customer, err = store.CreateCustomer(ctx, database.CreateCustomerParams{
				PhoneNumber: req.CustomerPhone,
				FullName:    req.CustomerName,
				IsGuest:     false,
			})
			if err != nil {
				return nil, fmt.Errorf("create customer: %w", err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("get customer: %w", err)
		}
		customerID = pgtype.UUID{Bytes: customer.ID, Valid: true}
	} else {
		customer, err := store.CreateCustomer(ctx, database.CreateCustomerParams{
			FullName: req.CustomerName,
			IsGuest:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("create guest customer: %w", err)
		}
		customerID = pgtype.UUID{Bytes: customer.ID, Valid: true}
	}

	items, total, err := s.processItems(ctx, store, req.Items)
	if err != nil {
		return nil, err
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:         takeawayOrderNumber(),
		TableID:             pgtype.UUID{Bytes: table.ID, Valid: true},
		CustomerID:          customerID,
		OrderType:           enum.OrderTypeTakeaway,
		OrderStatus:         enum.OrderStatusSubmitted,
		PaymentStatus:       enum.PaymentStatusOutstanding,
		Subtotal:            decimalToNumeric(total),
		TotalAmount:         decimalToNumeric(total),
		SpecialInstructions: textOrNull(req.SpecialInstructions),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var inserted []database.OrderItem
	for _, pi := range items {
		pi.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		inserted = append(inserted, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &SubmitResult{Order: order, Items: inserted, IsNewOrder: true}, nil
}

// processItems validates each line against the live menu and snapshots
// item_name and unit_price. Returns the prepared inserts and the summed
// subtotal delta.
func (s *OrderService) processItems(ctx context.Context, store OrderStore, reqItems []SubmitItemRequest) ([]processedItem, decimal.Decimal, error) {
	delta := decimal.Zero
	var items []processedItem

	for i, item := range reqItems {
		if item.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		menuItemID, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}

		menuItem, err := store.GetMenuItemForOrder(ctx, menuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, decimal.Zero, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, decimal.Zero, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}
		if !menuItem.IsAvailable {
			return nil, decimal.Zero, fmt.Errorf("item[%d] %s: %w", i, menuItem.Name, ErrMenuItemUnavailable)
		}

		unitPrice := numericToDecimal(menuItem.BasePrice)
		subtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		delta = delta.Add(subtotal)

		items = append(items, processedItem{
			params: database.CreateOrderItemParams{
				MenuItemID:          menuItemID,
				ItemName:            menuItem.Name,
				Quantity:            item.Quantity,
				UnitPrice:           decimalToNumeric(unitPrice),
				Subtotal:            decimalToNumeric(subtotal),
				Status:              enum.ItemStatusPending,
				SpecialInstructions: textOrNull(item.SpecialInstructions),
			},
		})
	}

	return items, delta, nil
}

// --- Helpers ---

func dineInOrderNumber() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixMilli())
}

func takeawayOrderNumber() string {
	return fmt.Sprintf("TO%06d", time.Now().UnixMilli()%1_000_000)
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
