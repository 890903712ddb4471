package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vendorhub/storefront/internal/core/domain"
)

func validSubmission() domain.ProductSubmission {
	return domain.ProductSubmission{
		Title:             "Lamp",
		Description:       "desk lamp",
		Price:             decimal.NewFromInt(20),
		AvailableQuantity: 4,
	}
}

func TestStruct_ValidSubmission(t *testing.T) {
	if err := New().Struct(validSubmission()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStruct_ZeroPriceAndStockAllowed(t *testing.T) {
	sub := validSubmission()
	sub.Price = decimal.Zero
	sub.AvailableQuantity = 0
	if err := New().Struct(sub); err != nil {
		t.Fatalf("zero price and stock are legal: %v", err)
	}
}

func TestStruct_RejectsInvalidSubmission(t *testing.T) {
	cases := map[string]func(*domain.ProductSubmission){
		"price":       func(s *domain.ProductSubmission) { s.Price = decimal.RequireFromString("-0.01") },
		"quantity":    func(s *domain.ProductSubmission) { s.AvailableQuantity = -1 },
		"title":       func(s *domain.ProductSubmission) { s.Title = "" },
		"description": func(s *domain.ProductSubmission) { s.Description = "" },
	}
	v := New()
	for field, mutate := range cases {
		sub := validSubmission()
		mutate(&sub)
		err := v.Struct(sub)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", field, err)
		}
		if !strings.Contains(err.Error(), field) {
			t.Errorf("%s: message should name the field, got %q", field, err.Error())
		}
	}
}

func TestStruct_TinyNegativePriceRejected(t *testing.T) {
	sub := validSubmission()
	sub.Price = decimal.RequireFromString("-1e-400")
	if err := New().Struct(sub); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for %s, got %v", sub.Price, err)
	}
}

func TestStruct_RoleTag(t *testing.T) {
	type form struct {
		Role domain.Role `json:"role" validate:"role"`
	}
	v := New()
	if err := v.Struct(form{Role: domain.RoleVendor}); err != nil {
		t.Fatalf("vendor is a valid role: %v", err)
	}
	if err := v.Struct(form{Role: domain.Role("root")}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown role, got %v", err)
	}
}
