// Package actor carries the capability token passed into every engine
// operation. Authentication and session issuance happen upstream; the engine
// only checks that the presented capability matches the operation.
package actor

import (
	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Role is the capability class of a caller.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleRestaurant Role = "restaurant"
	RoleDelivery   Role = "delivery"
	RoleAdmin      Role = "admin"
)

// ErrUnknownRole is returned when parsing an unrecognized role string.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole validates a role string from the transport layer.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleRestaurant, RoleDelivery, RoleAdmin:
		return Role(s), nil
	}
	return "", errors.Wrapf(ErrUnknownRole, "%q", s)
}

// Actor identifies a caller and the capability it holds.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Is reports whether the actor holds the given capability.
func (a Actor) Is(r Role) bool {
	return a.Role == r
}
