package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/xenking/chowline/internal/domain/actor"
)

const (
	// HeaderActorID carries the authenticated user's ID, set by the
	// upstream auth gateway.
	HeaderActorID = "X-Actor-ID"
	// HeaderActorRole carries the authenticated user's role.
	HeaderActorRole = "X-Actor-Role"

	actorContextKey = "chowline.actor"
)

// RequireRole returns echo middleware that resolves the caller from the
// actor headers and rejects requests whose capability does not match role.
// Admins pass every gate.
func RequireRole(role actor.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawID := c.Request().Header.Get(HeaderActorID)
			rawRole := c.Request().Header.Get(HeaderActorRole)
			if rawID == "" || rawRole == "" {
				return respondError(c, http.StatusUnauthorized, "missing actor headers")
			}

			id, err := uuid.Parse(rawID)
			if err != nil {
				return respondError(c, http.StatusUnauthorized, "invalid actor id")
			}
			parsed, err := actor.ParseRole(rawRole)
			if err != nil {
				return respondError(c, http.StatusUnauthorized, "invalid actor role")
			}

			act := actor.Actor{ID: id, Role: parsed}
			if !act.Is(role) && !act.Is(actor.RoleAdmin) {
				return respondError(c, http.StatusForbidden, "capability mismatch")
			}

			c.Set(actorContextKey, act)
			return next(c)
		}
	}
}

// actorFrom returns the actor resolved by RequireRole.
func actorFrom(c echo.Context) actor.Actor {
	act, _ := c.Get(actorContextKey).(actor.Actor)
	return act
}
