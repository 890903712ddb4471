package handler

import (
	"github.com/shopspring/decimal"

	"github.com/vendorhub/storefront/internal/core/domain"
)

// errorResponse is the envelope of every 4xx/5xx response. The storefront
// shows Message verbatim.
type errorResponse struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// submitProductRequest is the POST /api/products body. Older storefronts
// send the title as "name".
type submitProductRequest struct {
	Title       string          `json:"title"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	Image       string          `json:"image"`
}

type productListResponse struct {
	Products []domain.Product `json:"products"`
}

type moderationResponse struct {
	Message string         `json:"message"`
	Product domain.Product `json:"product"`
}

type historyResponse struct {
	Events []domain.ModerationEvent `json:"events"`
}
