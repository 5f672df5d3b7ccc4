package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/chowline/internal/domain/actor"
	"github.com/xenking/chowline/internal/domain/cart"
	"github.com/xenking/chowline/internal/domain/catalog"
	"github.com/xenking/chowline/internal/domain/pricing"
	"github.com/xenking/chowline/internal/domain/promo"
)

// Service is the order ledger: it turns carts into immutable orders and
// drives them through the status state machine.
type Service struct {
	carts   cart.Repository
	catalog catalog.Repository
	orders  Repository
	policy  pricing.Policy
	now     func() time.Time
}

// NewService creates the order ledger service.
func NewService(carts cart.Repository, cat catalog.Repository, orders Repository, policy pricing.Policy) *Service {
	return &Service{
		carts:   carts,
		catalog: cat,
		orders:  orders,
		policy:  policy,
		now:     time.Now,
	}
}

// CheckoutRequest holds the input for creating an order from a live cart.
type CheckoutRequest struct {
	CustomerID    uuid.UUID
	Address       Address
	PaymentMethod PaymentMethod
	PromoCode     string
}

// Checkout creates an immutable order from the customer's cart: prices are
// snapshotted, the optional promo code applied, and the order persisted
// together with the points credit and cart deletion as one transaction.
//
// An invalid, expired, or unmet-minimum promo code is silently ignored; the
// order proceeds with zero discount. If the promo's usage counter turns out
// to be spent at commit time, checkout retries once without the discount.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	c, err := s.carts.Get(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, errors.Wrap(err, "get cart")
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	rest, err := s.catalog.GetRestaurant(ctx, c.RestaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "get restaurant")
	}

	items, lines, err := s.snapshotItems(ctx, c.Items)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	now := s.now()
	applied, _ := promo.Validate(rest.Promos, req.PromoCode, subtotal, now)

	o, err := s.buildOrder(req, c.RestaurantID, items, lines, applied, now)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, o); err != nil {
		if errors.Is(err, ErrPromoExhausted) && applied != nil {
			// Another checkout spent the last use between the validator's
			// pre-check and our commit. Promo failures are silent, so the
			// order goes through once more at full price.
			o, err = s.buildOrder(req, c.RestaurantID, items, lines, nil, now)
			if err != nil {
				return nil, err
			}
			if err := s.orders.Create(ctx, o); err != nil {
				return nil, errors.Wrap(err, "create order")
			}
			return o, nil
		}
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// snapshotItems freezes name and price for every cart line. A menu item that
// vanished or became unavailable since it was added fails the checkout.
func (s *Service) snapshotItems(ctx context.Context, cartItems []cart.Item) ([]LineItem, []pricing.LineInput, error) {
	ids := make([]uuid.UUID, len(cartItems))
	for i, it := range cartItems {
		ids[i] = it.MenuItemID
	}

	fetched, err := s.catalog.GetMenuItems(ctx, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get menu items")
	}

	byID := make(map[uuid.UUID]catalog.MenuItem, len(fetched))
	for _, m := range fetched {
		byID[m.ID] = m
	}

	items := make([]LineItem, len(cartItems))
	lines := make([]pricing.LineInput, len(cartItems))
	for i, it := range cartItems {
		m, ok := byID[it.MenuItemID]
		if !ok {
			return nil, nil, errors.Wrapf(catalog.ErrMenuItemNotFound, "item %s", it.MenuItemID)
		}
		items[i] = LineItem{
			MenuItemID:   m.ID,
			Name:         m.Name,
			UnitPrice:    m.Price,
			Quantity:     it.Quantity,
			Instructions: it.Instructions,
		}
		lines[i] = pricing.LineInput{UnitPrice: m.Price, Quantity: it.Quantity}
	}

	return items, lines, nil
}

func (s *Service) buildOrder(req CheckoutRequest, restaurantID uuid.UUID, items []LineItem, lines []pricing.LineInput, applied *promo.Applied, now time.Time) (*Order, error) {
	discount := decimal.Zero
	var ap *AppliedPromo
	if applied != nil {
		discount = applied.Discount
		ap = &AppliedPromo{Code: applied.Code, Discount: applied.Discount}
	}

	quote, err := s.policy.Quote(lines, discount)
	if err != nil {
		return nil, err
	}

	eta := now.Add(s.policy.EstimatedDelivery)

	return &Order{
		ID:                uuid.New(),
		CustomerID:        req.CustomerID,
		RestaurantID:      restaurantID,
		Items:             items,
		Subtotal:          quote.Subtotal,
		DeliveryFee:       quote.DeliveryFee,
		Tax:               quote.Tax,
		Discount:          quote.Discount,
		Promo:             ap,
		Total:             quote.Total,
		Address:           req.Address,
		Status:            StatusPending,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     PaymentPending,
		EstimatedDelivery: &eta,
		PointsEarned:      quote.PointsEarned,
		History:           []HistoryEntry{{Status: StatusPending, At: now}},
		CreatedAt:         now,
	}, nil
}

// Transition moves an order to a new status on behalf of an actor. The state
// machine is validated first; the repository then performs a conditional
// update keyed on the expected pre-status, so a concurrent transition makes
// exactly one caller win. delivered additionally stamps the actual delivery
// time and credits the agent's per-delivery earning.
func (s *Service) Transition(ctx context.Context, act actor.Actor, orderID uuid.UUID, target Status, note string) (*Order, error) {
	o, err := s.getOwned(ctx, act, orderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, target, act.Role) {
		return nil, &InvalidTransitionError{From: o.Status, To: target}
	}
	if target == StatusRejected && note == "" {
		return nil, ErrNoteRequired
	}

	now := s.now()
	if target == StatusDelivered {
		updated, err := s.orders.MarkDelivered(ctx, orderID, act.ID, now, s.policy.DeliveryEarning)
		if err != nil {
			return nil, s.mapConflict(ctx, err, orderID, target)
		}
		return updated, nil
	}

	updated, err := s.orders.TransitionStatus(ctx, orderID, o.Status, HistoryEntry{
		Status: target,
		Note:   note,
		At:     now,
	})
	if err != nil {
		return nil, s.mapConflict(ctx, err, orderID, target)
	}
	return updated, nil
}

// mapConflict turns a lost conditional update into the transition error the
// caller would have seen had it read the post-race state.
func (s *Service) mapConflict(ctx context.Context, err error, orderID uuid.UUID, target Status) error {
	if !errors.Is(err, ErrStatusConflict) {
		return err
	}
	current, readErr := s.orders.Get(ctx, orderID)
	if readErr != nil {
		return readErr
	}
	return &InvalidTransitionError{From: current.Status, To: target}
}

// Get returns a single order scoped to the actor: customers see their own
// orders, restaurant staff their restaurant's, agents their assignments.
// Ownership mismatches surface as ErrNotFound, never as a permission error.
func (s *Service) Get(ctx context.Context, act actor.Actor, orderID uuid.UUID) (*Order, error) {
	return s.getOwned(ctx, act, orderID)
}

// List returns the actor's order history, newest first.
func (s *Service) List(ctx context.Context, act actor.Actor) ([]Order, error) {
	switch act.Role {
	case actor.RoleCustomer:
		return s.orders.ListByCustomer(ctx, act.ID)
	case actor.RoleRestaurant:
		rest, err := s.catalog.GetRestaurantByOwner(ctx, act.ID)
		if err != nil {
			return nil, err
		}
		return s.orders.ListByRestaurant(ctx, rest.ID)
	case actor.RoleDelivery:
		return s.orders.ListByAgent(ctx, act.ID)
	}
	return nil, ErrNotFound
}

// Points returns the customer's loyalty point balance.
func (s *Service) Points(ctx context.Context, customerID uuid.UUID) (int, error) {
	return s.orders.PointsBalance(ctx, customerID)
}

func (s *Service) getOwned(ctx context.Context, act actor.Actor, orderID uuid.UUID) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch act.Role {
	case actor.RoleAdmin:
		return o, nil
	case actor.RoleCustomer:
		if o.CustomerID == act.ID {
			return o, nil
		}
	case actor.RoleRestaurant:
		rest, err := s.catalog.GetRestaurantByOwner(ctx, act.ID)
		if err != nil {
			return nil, ErrNotFound
		}
		if o.RestaurantID == rest.ID {
			return o, nil
		}
	case actor.RoleDelivery:
		if o.AssignedAgent != nil && *o.AssignedAgent == act.ID {
			return o, nil
		}
	}

	return nil, ErrNotFound
}
