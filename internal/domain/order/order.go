// Package order owns order records and their state machine: the unit of
// consistency for money and status.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors shared by the service and its repositories.
var (
	// ErrEmptyCart is returned when checkout finds no cart or zero items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound is returned when an order does not exist or does not
	// belong to the requesting actor.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyAssigned is returned when a claim loses the race: the order
	// already has an agent or is no longer ready.
	ErrAlreadyAssigned = errors.New("order already assigned")
	// ErrStatusConflict is returned by the repository when a conditional
	// status update finds a different pre-state than expected.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrPromoExhausted is returned by the repository when the promo usage
	// counter cannot be incremented within its limit.
	ErrPromoExhausted = errors.New("promo code usage exhausted")
	// ErrNoteRequired is returned when rejecting an order without a reason.
	ErrNoteRequired = errors.New("rejection requires a reason note")
)

// InvalidTransitionError reports a disallowed status transition.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return "invalid transition " + string(e.From) + " -> " + string(e.To)
}

// LineItem is a frozen snapshot of a menu item at order time. Name and price
// are copied, not referenced: later catalog changes do not affect the order.
type LineItem struct {
	MenuItemID   uuid.UUID       `json:"menu_item_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	Instructions string          `json:"instructions,omitempty"`
}

// Address is a structured delivery address with optional geocoordinates.
type Address struct {
	Street  string   `json:"street"`
	City    string   `json:"city"`
	State   string   `json:"state"`
	ZipCode string   `json:"zip_code"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// AppliedPromo records the promo code applied at creation, if any.
type AppliedPromo struct {
	Code     string
	Discount decimal.Decimal
}

// PaymentMethod enumerates accepted payment instruments.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentUPI    PaymentMethod = "upi"
	PaymentWallet PaymentMethod = "wallet"
)

// ErrUnknownPaymentMethod is returned when parsing an unrecognized method.
var ErrUnknownPaymentMethod = errors.New("unknown payment method")

// ParsePaymentMethod validates a payment method string. An empty string
// defaults to cash, matching the storefront's behaviour.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentWallet:
		return PaymentMethod(s), nil
	case "":
		return PaymentCash, nil
	}
	return "", errors.Wrapf(ErrUnknownPaymentMethod, "%q", s)
}

// PaymentStatus tracks the payment lifecycle, owned by an external processor.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// HistoryEntry is one row of the append-only status audit log.
type HistoryEntry struct {
	Status Status
	Note   string
	At     time.Time
}

// Order is a priced, immutable-content record of a customer's purchase.
// Financials are frozen at creation; only status, assignment, and delivery
// timestamps change afterwards, and only through ledger operations.
type Order struct {
	ID           uuid.UUID
	CustomerID   uuid.UUID
	RestaurantID uuid.UUID
	Items        []LineItem

	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Tax         decimal.Decimal
	Discount    decimal.Decimal
	Promo       *AppliedPromo
	Total       decimal.Decimal

	Address       Address
	Status        Status
	AssignedAgent *uuid.UUID
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus

	EstimatedDelivery *time.Time
	ActualDelivery    *time.Time
	PointsEarned      int

	History   []HistoryEntry
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists orders. Every mutation is a single atomic
// read-modify-write: conditional updates keyed on the expected pre-state
// resolve concurrent callers, and each mutation appends its history entry
// and outbox event in the same transaction.
type Repository interface {
	// Create persists a new order atomically together with its side
	// effects: the customer's loyalty points credit, the promo usage
	// increment (conditional on the usage limit; ErrPromoExhausted when the
	// counter is spent), deletion of the source cart, and the order.created
	// outbox event.
	Create(ctx context.Context, o *Order) error

	// Get returns an order with its full status history, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Order, error)

	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]Order, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]Order, error)

	// ListAvailable returns the claimable pool: ready orders with no agent,
	// oldest first, optionally filtered to restaurants in the given zones.
	ListAvailable(ctx context.Context, zones []uuid.UUID) ([]Order, error)

	// TransitionStatus conditionally moves an order from the expected
	// status to the entry's status, appending the history entry. Returns
	// ErrStatusConflict when the pre-state no longer matches and
	// ErrNotFound when the order does not exist.
	TransitionStatus(ctx context.Context, id uuid.UUID, expect Status, entry HistoryEntry) (*Order, error)

	// Claim atomically assigns an agent to a ready, unassigned order and
	// moves it to out-for-delivery. Exactly one concurrent caller succeeds;
	// losers get ErrAlreadyAssigned, missing orders ErrNotFound.
	Claim(ctx context.Context, id, agentID uuid.UUID, at time.Time) (*Order, error)

	// MarkDelivered conditionally completes an out-for-delivery order owned
	// by the agent: stamps the actual delivery time and credits the agent's
	// earnings in one transaction.
	MarkDelivered(ctx context.Context, id, agentID uuid.UUID, at time.Time, earning decimal.Decimal) (*Order, error)

	// PointsBalance returns the customer's accumulated loyalty points.
	// Points are credited inside Create, so the balance lives with the
	// ledger.
	PointsBalance(ctx context.Context, customerID uuid.UUID) (int, error)
}
