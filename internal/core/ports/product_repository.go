package ports

import (
	"context"

	"github.com/vendorhub/storefront/internal/core/domain"
)

// ProductFilter narrows a product listing. Zero values do not filter.
type ProductFilter struct {
	Status   domain.ProductStatus
	VendorID string
}

// ProductRepository is the backend's product persistence.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	// List returns matching products ordered by creation time, oldest first.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	// UpdateStatus moves the product from `from` to `to` only if it is still
	// in `from`; otherwise it returns ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, from, to domain.ProductStatus) error
	Delete(ctx context.Context, id string) error
}

// IdempotencyStore remembers which product a vendor's submission key created.
type IdempotencyStore interface {
	Lookup(ctx context.Context, vendorID, key string) (productID string, found bool, err error)
	Remember(ctx context.Context, vendorID, key, productID string) error
}
