// Package memory implements the backend repositories in process. It backs
// marketd with STORE=memory and the HTTP tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/ports"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

var _ ports.ProductRepository = (*ProductRepository)(nil)

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]domain.Product)}
}

func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; ok {
		return fmt.Errorf("create product %s: duplicate id", p.ID)
	}
	r.products[p.ID] = *p
	return nil
}

func (r *ProductRepository) FindByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r *ProductRepository) List(_ context.Context, f ports.ProductFilter) ([]domain.Product, error) {
	r.mu.RLock()
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.VendorID != "" && p.VendorID != f.VendorID {
			continue
		}
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ProductRepository) UpdateStatus(_ context.Context, id string, from, to domain.ProductStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Status != from {
		return fmt.Errorf("%w (from %s to %s)", domain.ErrInvalidTransition, p.Status, to)
	}
	p.Status = to
	r.products[id] = p
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

type UserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{byEmail: make(map[string]domain.User)}
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return nil, domain.ErrUserExists
	}
	r.byEmail[user.Email] = *user
	u := *user
	return &u, nil
}

type AuditRepository struct {
	mu     sync.RWMutex
	events []domain.ModerationEvent
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) InsertModerationEvent(_ context.Context, e *domain.ModerationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

// ListModerationEvents returns the product's events in insertion order.
func (r *AuditRepository) ListModerationEvents(_ context.Context, productID string) ([]domain.ModerationEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ModerationEvent
	for _, e := range r.events {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, nil
}

type IdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{keys: make(map[string]string)}
}

func (s *IdempotencyStore) Lookup(_ context.Context, vendorID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.keys[vendorID+"\x00"+key]
	return id, ok, nil
}

func (s *IdempotencyStore) Remember(_ context.Context, vendorID, key, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[vendorID+"\x00"+key] = productID
	return nil
}
