package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vendorhub/storefront/internal/api/middleware"
	"github.com/vendorhub/storefront/internal/core/domain"
)

// ctxActor returns the identity injected by the Auth middleware. Its absence
// means the route was mounted without Auth and is reported as 401.
func ctxActor(c echo.Context) (domain.Identity, error) {
	actor, ok := middleware.Actor(c)
	if !ok || !actor.Valid() {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return actor, nil
}
