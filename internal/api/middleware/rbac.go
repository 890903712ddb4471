package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vendorhub/storefront/internal/core/policy"
)

// RBAC rejects callers whose role may not perform action. Ownership checks
// stay in the services, which know the resource.
func RBAC(action policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := Actor(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if policy.CanPerform(actor.Role, action, "", actor.ID) == policy.Deny {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
