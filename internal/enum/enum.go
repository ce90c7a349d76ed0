package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusSubmitted = "SUBMITTED"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusServed    = "SERVED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	ItemStatusPending   = "PENDING"
	ItemStatusPreparing = "PREPARING"
	ItemStatusReady     = "READY"
	ItemStatusServed    = "SERVED"
	ItemStatusCancelled = "CANCELLED"
)

// Order-level settlement state. An order is "open" while OUTSTANDING or
// PARTIALLY_PAID; PAID and REFUNDED are terminal.
const (
	PaymentStatusOutstanding   = "OUTSTANDING"
	PaymentStatusPartiallyPaid = "PARTIALLY_PAID"
	PaymentStatusPaid          = "PAID"
	PaymentStatusRefunded      = "REFUNDED"
)

// Per-payment-row state.
const (
	PaymentRowCompleted = "COMPLETED"
	PaymentRowRefunded  = "REFUNDED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleCashier = "CASHIER"
	RoleKitchen = "KITCHEN"
	RoleWaiter  = "WAITER"
)

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
)

// ── Group B: Configurable labels (no DB constraint) ──

// DEBIT_CARD is the storage name for the method cashiers see as "CARD".
const (
	PaymentMethodCash      = "CASH"
	PaymentMethodQRIS      = "QRIS"
	PaymentMethodDebitCard = "DEBIT_CARD"
)

// TakeawayTableNumber is the reserved virtual table that funnels every
// takeaway ticket through the same open-order lookup as dine-in.
const TakeawayTableNumber = "TAKEAWAY"
