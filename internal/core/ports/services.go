package ports

import (
	"context"

	"github.com/vendorhub/storefront/internal/core/domain"
)

// SubmitResult is returned by ProductService.Submit.
type SubmitResult struct {
	Product domain.Product
	// AlreadyExisted is true when the Idempotency-Key matched an earlier submission.
	AlreadyExisted bool
}

// ProductService is the backend's product use cases. Every method authorizes
// the actor itself.
type ProductService interface {
	ListApproved(ctx context.Context) ([]domain.Product, error)
	ListByVendor(ctx context.Context, actor domain.Identity) ([]domain.Product, error)
	ListPending(ctx context.Context, actor domain.Identity) ([]domain.Product, error)
	Submit(ctx context.Context, actor domain.Identity, in domain.ProductSubmission, idempotencyKey string) (*SubmitResult, error)
	Approve(ctx context.Context, actor domain.Identity, productID string) (*domain.Product, error)
	// Reject records a rejection. With purge the product record is deleted
	// afterwards; the moderation history keeps the decision.
	Reject(ctx context.Context, actor domain.Identity, productID string, purge bool) (*domain.Product, error)
	History(ctx context.Context, actor domain.Identity, productID string) ([]domain.ModerationEvent, error)
}

// AuthService registers accounts and issues bearer tokens.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}
