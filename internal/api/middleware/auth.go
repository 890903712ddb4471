package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/service"
)

// ActorKey is the echo context key holding the authenticated domain.Identity.
const ActorKey = "actor"

// Auth validates the bearer JWT and stores the caller's identity in context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	key := []byte(jwtSecret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			scheme, raw, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := &service.Claims{}
			tkn, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return key, nil })
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			actor := domain.Identity{ID: claims.Subject, DisplayName: claims.Name, Email: claims.Email, Role: claims.Role}
			if !actor.Valid() {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing identity")
			}
			c.Set(ActorKey, actor)
			return next(c)
		}
	}
}

// Actor returns the identity stored by Auth.
func Actor(c echo.Context) (domain.Identity, bool) {
	actor, ok := c.Get(ActorKey).(domain.Identity)
	return actor, ok
}
