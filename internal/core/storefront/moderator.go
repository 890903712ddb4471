package storefront

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/policy"
	"github.com/vendorhub/storefront/internal/core/ports"
	"github.com/vendorhub/storefront/internal/pkg/validation"
)

// Moderator is the client mirror of the product moderation state machine.
// It authorizes every transition itself and applies a new status only after
// the backend has confirmed it.
type Moderator struct {
	backend  ports.ProductBackend
	validate *validation.Validator
	log      zerolog.Logger
	newKey   func() string

	mu       sync.Mutex
	products map[string]domain.Product
	// unconfirmed holds products whose last reject failed in transit; the
	// backend may have applied it.
	unconfirmed map[string]bool
}

func NewModerator(backend ports.ProductBackend, log zerolog.Logger) *Moderator {
	return &Moderator{
		backend:  backend,
		validate: validation.New(),
		log:      log,
		newKey:   uuid.NewString,
		products:    make(map[string]domain.Product),
		unconfirmed: make(map[string]bool),
	}
}

// Submit validates and sends a vendor's new product. The created product is
// always pending. Submit is never retried automatically.
func (m *Moderator) Submit(ctx context.Context, session *domain.Session, in domain.ProductSubmission) (*domain.Product, error) {
	if err := policy.Authorize(session, policy.ActionSubmitProduct, ""); err != nil {
		return nil, fmt.Errorf("submit product: %w", err)
	}
	in = in.Normalize()
	if err := m.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("submit product: %w", err)
	}

	key := m.newKey()
	created, err := m.backend.Submit(ctx, session.Credential, in, key)
	if err != nil {
		m.log.Warn().Err(err).Str("idempotency_key", key).Msg("product submission failed")
		return nil, fmt.Errorf("submit product: %w", err)
	}

	p := *created
	if p.Status == "" {
		p.Status = domain.StatusPending
	}
	if p.Status != domain.StatusPending {
		return nil, fmt.Errorf("submit product: %w: backend created %s as %q", domain.ErrInvalidTransition, p.ID, p.Status)
	}
	if p.VendorID == "" {
		p.VendorID = session.ActorID()
	}

	m.Observe(p)
	m.log.Info().Str("product_id", p.ID).Str("vendor_id", p.VendorID).Msg("product submitted")
	return &p, nil
}

// Approve moves a pending product to approved. Approving an approved product
// is a no-op success; approving a rejected one is ErrInvalidTransition.
func (m *Moderator) Approve(ctx context.Context, session *domain.Session, productID string) (*domain.Product, error) {
	return m.decide(ctx, session, productID, domain.DecisionApprove)
}

// Reject moves a pending product to rejected, with the same idempotence and
// conflict rules as Approve.
func (m *Moderator) Reject(ctx context.Context, session *domain.Session, productID string) (*domain.Product, error) {
	return m.decide(ctx, session, productID, domain.DecisionReject)
}

func (m *Moderator) decide(ctx context.Context, session *domain.Session, productID string, d domain.Decision) (*domain.Product, error) {
	action := policy.ActionApproveProduct
	if d == domain.DecisionReject {
		action = policy.ActionRejectProduct
	}
	if err := policy.Authorize(session, action, ""); err != nil {
		m.log.Warn().Str("product_id", productID).Str("role", session.Role().String()).Str("decision", string(d)).Msg("moderation denied")
		return nil, fmt.Errorf("%s product %s: %w", d, productID, err)
	}

	p, ok := m.Product(productID)
	if !ok {
		return nil, fmt.Errorf("%s product %s: %w", d, productID, domain.ErrProductNotFound)
	}

	next, changed, err := p.Status.Resolve(d)
	if err != nil {
		return nil, fmt.Errorf("%s product %s: %w", d, productID, err)
	}
	if !changed {
		m.log.Debug().Str("product_id", productID).Str("status", string(p.Status)).Msg("decision already applied")
		return &p, nil
	}

	switch d {
	case domain.DecisionApprove:
		err = m.backend.Approve(ctx, session.Credential, productID)
	case domain.DecisionReject:
		err = m.reject(ctx, session, productID)
	}
	if err != nil {
		m.log.Warn().Err(err).Str("product_id", productID).Str("decision", string(d)).Bool("retryable", domain.Retryable(err)).Msg("moderation not applied")
		return nil, fmt.Errorf("%s product %s: %w", d, productID, err)
	}

	m.mu.Lock()
	p = m.products[productID]
	p.Status = next
	m.products[productID] = p
	m.mu.Unlock()

	m.log.Info().Str("product_id", productID).Str("status", string(next)).Msg("moderation applied")
	return &p, nil
}

// reject calls the backend and settles a reject whose earlier response was
// lost: a backend that deletes rejected products answers the repeat with
// not found.
func (m *Moderator) reject(ctx context.Context, session *domain.Session, productID string) error {
	err := m.backend.Reject(ctx, session.Credential, productID)

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case err == nil:
		delete(m.unconfirmed, productID)
	case errors.Is(err, domain.ErrNetwork):
		m.unconfirmed[productID] = true
	case errors.Is(err, domain.ErrProductNotFound) && m.unconfirmed[productID]:
		delete(m.unconfirmed, productID)
		m.log.Info().Str("product_id", productID).Msg("lost reject response confirmed by missing product")
		return nil
	default:
		delete(m.unconfirmed, productID)
	}
	return err
}

// Observe merges authoritative backend snapshots into the mirror.
func (m *Moderator) Observe(products ...domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		m.products[p.ID] = p
	}
}

// Product returns the mirrored state of a product.
func (m *Moderator) Product(id string) (domain.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	return p, ok
}

// Rejected returns mirrored rejected products, oldest first. The backend may
// have deleted them; the mirror keeps them as terminal tombstones.
func (m *Moderator) Rejected() []domain.Product {
	m.mu.Lock()
	var out []domain.Product
	for _, p := range m.products {
		if p.Status == domain.StatusRejected {
			out = append(out, p)
		}
	}
	m.mu.Unlock()
	sortOldestFirst(out)
	return out
}

// Forget drops the whole mirror, e.g. when the session ends.
func (m *Moderator) Forget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = make(map[string]domain.Product)
	m.unconfirmed = make(map[string]bool)
}

func sortOldestFirst(products []domain.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.Before(products[j].CreatedAt)
		}
		return products[i].ID < products[j].ID
	})
}
