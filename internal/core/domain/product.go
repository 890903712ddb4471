package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The backend speaks JSON numbers for prices.
	decimal.MarshalJSONWithoutQuotes = true
}

// ProductStatus is the moderation state of a product.
type ProductStatus string

const (
	StatusPending  ProductStatus = "pending"
	StatusApproved ProductStatus = "approved"
	StatusRejected ProductStatus = "rejected"
)

// Decision is an admin moderation outcome.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// moderationTransitions is the only place transitions are defined. The client
// mirror and the backend both resolve decisions through it.
var moderationTransitions = map[ProductStatus]map[Decision]ProductStatus{
	StatusPending: {
		DecisionApprove: StatusApproved,
		DecisionReject:  StatusRejected,
	},
}

var decisionOutcomes = map[Decision]ProductStatus{
	DecisionApprove: StatusApproved,
	DecisionReject:  StatusRejected,
}

func (s ProductStatus) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Terminal reports whether no further transition may leave s.
func (s ProductStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Outcome returns the status a decision aims for.
func (d Decision) Outcome() (ProductStatus, bool) {
	st, ok := decisionOutcomes[d]
	return st, ok
}

// Resolve returns the status that decision d leads to from s. changed is false
// when the product already carries d's outcome: replaying a decision is a
// no-op success. Deciding the opposite outcome of a terminal state is
// ErrInvalidTransition.
func (s ProductStatus) Resolve(d Decision) (next ProductStatus, changed bool, err error) {
	outcome, ok := d.Outcome()
	if !ok {
		return s, false, fmt.Errorf("%w: unknown decision %q", ErrInvalidTransition, d)
	}
	if s == outcome {
		return s, false, nil
	}
	if next, ok := moderationTransitions[s][d]; ok {
		return next, true, nil
	}
	return s, false, fmt.Errorf("%w (from %s to %s)", ErrInvalidTransition, s, outcome)
}

// Product is the canonical product schema.
type Product struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Category          string          `json:"category,omitempty"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity int             `json:"quantity"`
	ImageRef          string          `json:"image,omitempty"`
	VendorID          string          `json:"vendorId"`
	Status            ProductStatus   `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// ProductSubmission is what a vendor sends to list a new product.
type ProductSubmission struct {
	Title             string          `json:"title"       validate:"required"`
	Description       string          `json:"description" validate:"required"`
	Category          string          `json:"category,omitempty"`
	Price             decimal.Decimal `json:"price"       validate:"nonnegative"`
	AvailableQuantity int             `json:"quantity"    validate:"gte=0"`
	ImageRef          string          `json:"image,omitempty"`
}

// Normalize trims the free-text fields so blank input fails "required".
func (p ProductSubmission) Normalize() ProductSubmission {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.Category = strings.TrimSpace(p.Category)
	p.ImageRef = strings.TrimSpace(p.ImageRef)
	return p
}

// FormatPrice renders an amount as dollars with two decimals, e.g. "$20.00".
func FormatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
