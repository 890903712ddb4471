// Package validation wraps go-playground/validator with the marketplace's
// custom types and turns failures into domain.ErrValidation.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vendorhub/storefront/internal/core/domain"
)

// Validator is safe for concurrent use. It also satisfies echo.Validator.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	// only fails on a malformed tag definition
	if err := v.RegisterValidation("role", validRole); err != nil {
		panic(fmt.Sprintf("validation: register role: %v", err))
	}
	if err := v.RegisterValidation("nonnegative", nonNegativeDecimal); err != nil {
		panic(fmt.Sprintf("validation: register nonnegative: %v", err))
	}
	return &Validator{v: v}
}

// Struct validates i and reports every failing field in one error.
func (ev *Validator) Struct(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
}

// Validate satisfies the echo.Validator interface.
func (ev *Validator) Validate(i any) error {
	return ev.Struct(i)
}

func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "gte":
		return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "nonnegative":
		return field + " must not be negative"
	case "role":
		return field + " must be one of: customer, vendor, admin"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return strings.ToLower(f.Name)
	}
	return name
}

// nonNegativeDecimal compares exactly; a float conversion would round tiny
// negative amounts to -0.
func nonNegativeDecimal(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(decimal.Decimal)
	return ok && !d.IsNegative()
}

func validRole(fl validator.FieldLevel) bool {
	switch r := fl.Field().Interface().(type) {
	case domain.Role:
		return r.Valid()
	case string:
		_, ok := domain.ParseRole(r)
		return ok
	}
	return false
}
