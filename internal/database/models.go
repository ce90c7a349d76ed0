package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Table is a physical seating unit. The reserved TAKEAWAY row acts as a
// virtual table so takeaway tickets share the open-order lookup path.
type Table struct {
	ID           uuid.UUID
	TableNumber  string
	QrCode       string
	Capacity     int32
	LocationZone pgtype.Text
	IsActive     bool
	IsOccupied   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type MenuCategory struct {
	ID           uuid.UUID
	Name         string
	Description  pgtype.Text
	DisplayOrder int32
	IconUrl      pgtype.Text
	IsActive     bool
	CreatedAt    time.Time
}

type MenuItem struct {
	ID              uuid.UUID
	CategoryID      uuid.UUID
	Name            string
	Description     pgtype.Text
	BasePrice       pgtype.Numeric
	ImageUrl        pgtype.Text
	DisplayOrder    int32
	PreparationTime pgtype.Int4
	IsAvailable     bool
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Order is one running tab for a table visit or takeaway ticket.
// total_amount always equals the sum of its non-cancelled items' subtotals.
type Order struct {
	ID                  uuid.UUID
	OrderNumber         string
	TableID             pgtype.UUID
	CustomerID          pgtype.UUID
	OrderType           string
	OrderStatus         string
	PaymentStatus       string
	Subtotal            pgtype.Numeric
	TotalAmount         pgtype.Numeric
	SpecialInstructions pgtype.Text
	SubmittedAt         time.Time
	PreparingAt         pgtype.Timestamptz
	ReadyAt             pgtype.Timestamptz
	ServedAt            pgtype.Timestamptz
	UpdatedAt           time.Time
}

// OrderItem snapshots item_name and unit_price at submission time so the
// receipt survives later menu edits.
type OrderItem struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	MenuItemID          uuid.UUID
	ItemName            string
	Quantity            int32
	UnitPrice           pgtype.Numeric
	Subtotal            pgtype.Numeric
	Status              string
	SpecialInstructions pgtype.Text
	PreparedAt          pgtype.Timestamptz
	ReadyAt             pgtype.Timestamptz
	ServedAt            pgtype.Timestamptz
	CreatedAt           time.Time
}

type Payment struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	PaymentNumber  string
	PaymentMethod  string
	Amount         pgtype.Numeric
	AmountTendered pgtype.Numeric
	ChangeAmount   pgtype.Numeric
	PaymentStatus  string
	ProcessedBy    pgtype.UUID
	ProcessedAt    time.Time
}

type Staff struct {
	ID           uuid.UUID
	EmployeeID   string
	FullName     string
	Email        pgtype.Text
	PhoneNumber  pgtype.Text
	Username     string
	PasswordHash string
	Role         string
	IsActive     bool
	LastLoginAt  pgtype.Timestamptz
	CreatedAt    time.Time
}

type Customer struct {
	ID          uuid.UUID
	PhoneNumber pgtype.Text
	FullName    string
	IsGuest     bool
	CreatedAt   time.Time
}
