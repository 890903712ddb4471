package ports

import (
	"context"

	"github.com/vendorhub/storefront/internal/core/domain"
)

// ProductBackend is the marketplace backend as seen by the storefront.
type ProductBackend interface {
	// ListApproved is public and returns approved products only.
	ListApproved(ctx context.Context) ([]domain.Product, error)
	// ListMine returns the calling vendor's products in every state.
	ListMine(ctx context.Context, token domain.Credential) ([]domain.Product, error)
	// ListPending returns the moderation queue (admin).
	ListPending(ctx context.Context, token domain.Credential) ([]domain.Product, error)
	// Submit creates a pending product. idempotencyKey lets the backend
	// recognise a resubmission of the same request.
	Submit(ctx context.Context, token domain.Credential, in domain.ProductSubmission, idempotencyKey string) (*domain.Product, error)
	Approve(ctx context.Context, token domain.Credential, productID string) error
	Reject(ctx context.Context, token domain.Credential, productID string) error
}

// RegisterInput carries a new account's details.
type RegisterInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"    validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8"`
	Role     domain.Role `json:"role"     validate:"required,role"`
}

// AccountBackend issues credentials.
type AccountBackend interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Identity, error)
	Login(ctx context.Context, email, password string) (*domain.Session, error)
}
