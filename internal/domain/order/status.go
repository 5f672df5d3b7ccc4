package order

import (
	"github.com/go-faster/errors"

	"github.com/xenking/chowline/internal/domain/actor"
)

// Status is the order lifecycle state. Transitions are validated by
// CanTransition; delivered, cancelled, and rejected are terminal.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out-for-delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusRejected       Status = "rejected"
)

// ErrUnknownStatus is returned when parsing an unrecognized status string.
var ErrUnknownStatus = errors.New("unknown order status")

// ParseStatus validates a status string from the wire.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusRejected:
		return Status(s), nil
	}
	return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether the given role may move an order from one
// status to another. ready -> out-for-delivery is deliberately absent: that
// edge only happens through an atomic claim, never a plain transition.
func CanTransition(from, to Status, role actor.Role) bool {
	if from.Terminal() {
		return false
	}

	if to == StatusCancelled {
		switch role {
		case actor.RoleCustomer:
			return from == StatusPending || from == StatusConfirmed
		case actor.RoleRestaurant, actor.RoleAdmin:
			return true
		}
		return false
	}

	switch role {
	case actor.RoleRestaurant, actor.RoleAdmin:
		switch from {
		case StatusPending:
			return to == StatusConfirmed || to == StatusRejected
		case StatusConfirmed:
			return to == StatusPreparing || to == StatusReady
		case StatusPreparing:
			return to == StatusReady
		}
	case actor.RoleDelivery:
		return from == StatusOutForDelivery && to == StatusDelivered
	}

	return false
}
