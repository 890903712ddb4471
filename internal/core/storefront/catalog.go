package storefront

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/policy"
	"github.com/vendorhub/storefront/internal/core/ports"
)

// View names a screen whose data the catalog loads.
type View string

const (
	ViewProducts     View = "products"
	ViewPendingQueue View = "pending_queue"
)

// Catalog is the read-only projection of backend products for a session. It
// never mutates products; it only filters and orders what the backend sends,
// and hands every snapshot to the Moderator.
type Catalog struct {
	backend   ports.ProductBackend
	moderator *Moderator
	log       zerolog.Logger
	views     generations
}

func NewCatalog(backend ports.ProductBackend, moderator *Moderator, log zerolog.Logger) *Catalog {
	return &Catalog{
		backend:   backend,
		moderator: moderator,
		log:       log,
		views:     generations{current: make(map[View]uint64)},
	}
}

// VisibleProducts returns what the session may browse: approved products for
// customers and anonymous visitors, a vendor's own products in every state,
// and every known product for admins (rejected ones from the mirror).
func (c *Catalog) VisibleProducts(ctx context.Context, session *domain.Session) ([]domain.Product, error) {
	gen := c.views.begin(ViewProducts)

	var (
		products []domain.Product
		err      error
	)
	switch role := session.Role(); {
	case !session.Authenticated() || role == domain.RoleCustomer:
		products, err = c.approved(ctx)
	case role == domain.RoleVendor:
		products, err = c.vendorOwn(ctx, session)
	case role == domain.RoleAdmin:
		products, err = c.everything(ctx, session)
	default:
		err = fmt.Errorf("%w: role %s", domain.ErrUnauthorized, role)
	}
	if err != nil {
		return nil, fmt.Errorf("visible products: %w", err)
	}

	if !c.views.live(ViewProducts, gen) {
		c.log.Debug().Uint64("generation", gen).Msg("discarding stale product listing")
		return nil, fmt.Errorf("visible products: %w", domain.ErrStaleResponse)
	}
	c.moderator.Observe(products...)
	return products, nil
}

// PendingQueue returns pending products, oldest submission first. Admin only.
func (c *Catalog) PendingQueue(ctx context.Context, session *domain.Session) ([]domain.Product, error) {
	if err := policy.Authorize(session, policy.ActionViewPendingQueue, ""); err != nil {
		return nil, fmt.Errorf("pending queue: %w", err)
	}
	gen := c.views.begin(ViewPendingQueue)

	listed, err := c.backend.ListPending(ctx, session.Credential)
	if err != nil {
		return nil, fmt.Errorf("pending queue: %w", err)
	}
	queue := filterStatus(listed, domain.StatusPending)
	sortOldestFirst(queue)

	if !c.views.live(ViewPendingQueue, gen) {
		c.log.Debug().Uint64("generation", gen).Msg("discarding stale pending queue")
		return nil, fmt.Errorf("pending queue: %w", domain.ErrStaleResponse)
	}
	c.moderator.Observe(queue...)
	return queue, nil
}

// Leave marks view as no longer displayed; responses still in flight for it
// are discarded when they arrive.
func (c *Catalog) Leave(view View) {
	c.views.bump(view)
}

func (c *Catalog) approved(ctx context.Context) ([]domain.Product, error) {
	listed, err := c.backend.ListApproved(ctx)
	if err != nil {
		return nil, err
	}
	approved := filterStatus(listed, domain.StatusApproved)
	sortOldestFirst(approved)
	return approved, nil
}

func (c *Catalog) vendorOwn(ctx context.Context, session *domain.Session) ([]domain.Product, error) {
	if err := policy.Authorize(session, policy.ActionViewOwnProducts, ""); err != nil {
		return nil, err
	}
	listed, err := c.backend.ListMine(ctx, session.Credential)
	if err != nil {
		return nil, err
	}
	actor := session.ActorID()
	own := make([]domain.Product, 0, len(listed))
	for _, p := range listed {
		// the listing is scoped by the token, so a missing vendor id is ours
		if p.VendorID == "" {
			p.VendorID = actor
		}
		if policy.CanPerform(session.Role(), policy.ActionViewOwnProducts, p.VendorID, actor) == policy.Allow {
			own = append(own, p)
		}
	}
	sortOldestFirst(own)
	return own, nil
}

func (c *Catalog) everything(ctx context.Context, session *domain.Session) ([]domain.Product, error) {
	approved, err := c.approved(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := c.backend.ListPending(ctx, session.Credential)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(approved)+len(pending))
	var all []domain.Product
	add := func(ps []domain.Product) {
		for _, p := range ps {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			all = append(all, p)
		}
	}
	add(approved)
	add(filterStatus(pending, domain.StatusPending))
	add(c.moderator.Rejected())
	sortOldestFirst(all)
	return all, nil
}

func filterStatus(products []domain.Product, status domain.ProductStatus) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

// generations tracks the latest request per view. A response is live only
// if no newer request or navigation happened since it was issued.
type generations struct {
	mu      sync.Mutex
	current map[View]uint64
}

func (g *generations) begin(v View) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current[v]++
	return g.current[v]
}

func (g *generations) bump(v View) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current[v]++
}

func (g *generations) live(v View, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current[v] == gen
}

// VendorStats summarises a vendor's listings for the dashboard.
type VendorStats struct {
	Total    int
	Approved int
	Pending  int
	Rejected int
	// ListedValue is the sum of approved products' prices.
	ListedValue decimal.Decimal
}

func SummarizeVendor(products []domain.Product) VendorStats {
	s := VendorStats{ListedValue: decimal.Zero}
	for _, p := range products {
		s.Total++
		switch p.Status {
		case domain.StatusApproved:
			s.Approved++
			s.ListedValue = s.ListedValue.Add(p.Price)
		case domain.StatusPending:
			s.Pending++
		case domain.StatusRejected:
			s.Rejected++
		}
	}
	return s
}
