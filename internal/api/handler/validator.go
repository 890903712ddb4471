package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/vendorhub/storefront/internal/pkg/validation"
)

// NewValidator returns the validator assigned to echo.Echo.Validator.
func NewValidator() echo.Validator {
	return validation.New()
}
