package storefront

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/ports"
)

var nopLog = zerolog.Nop()

// --- key-value stub ---

type stubKV struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	setErr  map[string]error
	deletes int
}

func newStubKV() *stubKV {
	return &stubKV{data: make(map[string]string), setErr: make(map[string]error)}
}

func (s *stubKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *stubKV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setErr[key]; err != nil {
		return err
	}
	s.data[key] = value
	return nil
}

func (s *stubKV) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *stubKV) Close() error { return nil }

// --- backend stub ---

type stubBackend struct {
	mu        sync.Mutex
	products  map[string]domain.Product
	users     map[string]domain.Identity
	passwords map[string]string
	nextID    int

	// failures are consumed one per call
	approveErrs []error
	rejectErrs  []error
	listErr     error

	approveCalls int
	rejectCalls  int
	submitKeys   []string

	// entered is signalled when a list call starts; release, when set,
	// blocks list calls until closed
	entered chan struct{}
	release chan struct{}
}

var _ ports.ProductBackend = (*stubBackend)(nil)
var _ ports.AccountBackend = (*stubBackend)(nil)

func newStubBackend() *stubBackend {
	return &stubBackend{
		products:  make(map[string]domain.Product),
		users:     make(map[string]domain.Identity),
		passwords: make(map[string]string),
	}
}

func (b *stubBackend) seed(p domain.Product) domain.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Date(2026, 1, 1, 0, 0, len(b.products), 0, time.UTC)
	}
	b.products[p.ID] = p
	return p
}

func (b *stubBackend) addUser(id domain.Identity, email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id.Email = email
	b.users[email] = id
	b.passwords[email] = password
}

func (b *stubBackend) wait(ctx context.Context) error {
	if b.entered != nil {
		b.entered <- struct{}{}
	}
	if b.release == nil {
		return nil
	}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *stubBackend) list(match func(domain.Product) bool) []domain.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Product
	for _, p := range b.products {
		if match(p) {
			out = append(out, p)
		}
	}
	return out
}

func (b *stubBackend) identity(token domain.Credential) (domain.Identity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if domain.Credential("tok-"+u.ID) == token {
			return u, nil
		}
	}
	return domain.Identity{}, &domain.BackendError{Status: 401, Message: "invalid token"}
}

func (b *stubBackend) ListApproved(ctx context.Context) ([]domain.Product, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.list(func(p domain.Product) bool { return p.Status == domain.StatusApproved }), nil
}

func (b *stubBackend) ListMine(ctx context.Context, token domain.Credential) ([]domain.Product, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	u, err := b.identity(token)
	if err != nil {
		return nil, err
	}
	return b.list(func(p domain.Product) bool { return p.VendorID == u.ID }), nil
}

func (b *stubBackend) ListPending(ctx context.Context, _ domain.Credential) ([]domain.Product, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	return b.list(func(p domain.Product) bool { return p.Status == domain.StatusPending }), nil
}

func (b *stubBackend) Submit(_ context.Context, token domain.Credential, in domain.ProductSubmission, key string) (*domain.Product, error) {
	u, err := b.identity(token)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.nextID++
	id := fmt.Sprintf("p%d", b.nextID)
	b.submitKeys = append(b.submitKeys, key)
	b.mu.Unlock()
	p := b.seed(domain.Product{
		ID:                id,
		Title:             in.Title,
		Description:       in.Description,
		Category:          in.Category,
		Price:             in.Price,
		AvailableQuantity: in.AvailableQuantity,
		VendorID:          u.ID,
		Status:            domain.StatusPending,
	})
	return &p, nil
}

func (b *stubBackend) moderate(id string, d domain.Decision, errs *[]error, calls *int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	*calls++
	if len(*errs) > 0 {
		err := (*errs)[0]
		*errs = (*errs)[1:]
		if err != nil {
			return err
		}
	}
	p, ok := b.products[id]
	if !ok {
		return &domain.BackendError{Status: 404, Message: "Product not found"}
	}
	next, _, err := p.Status.Resolve(d)
	if err != nil {
		return &domain.BackendError{Status: 409, Message: "Product already moderated"}
	}
	p.Status = next
	b.products[id] = p
	return nil
}

func (b *stubBackend) Approve(_ context.Context, _ domain.Credential, id string) error {
	return b.moderate(id, domain.DecisionApprove, &b.approveErrs, &b.approveCalls)
}

func (b *stubBackend) Reject(_ context.Context, _ domain.Credential, id string) error {
	return b.moderate(id, domain.DecisionReject, &b.rejectErrs, &b.rejectCalls)
}

func (b *stubBackend) Register(_ context.Context, in ports.RegisterInput) (*domain.Identity, error) {
	b.mu.Lock()
	_, exists := b.users[in.Email]
	b.mu.Unlock()
	if exists {
		return nil, &domain.BackendError{Status: 409, Message: "User already exists"}
	}
	id := domain.Identity{ID: "u-" + in.Email, DisplayName: in.Name, Role: in.Role}
	b.addUser(id, in.Email, in.Password)
	id.Email = in.Email
	return &id, nil
}

func (b *stubBackend) Login(_ context.Context, email, password string) (*domain.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[email]
	if !ok || b.passwords[email] != password {
		return nil, &domain.BackendError{Status: 401, Message: "Invalid credentials"}
	}
	return &domain.Session{Identity: u, Credential: domain.Credential("tok-" + u.ID)}, nil
}

// --- fixtures ---

var (
	customer = &domain.Session{Identity: domain.Identity{ID: "c1", Role: domain.RoleCustomer}, Credential: "tok-c1"}
	vendor   = &domain.Session{Identity: domain.Identity{ID: "v1", Role: domain.RoleVendor}, Credential: "tok-v1"}
	admin    = &domain.Session{Identity: domain.Identity{ID: "a1", Role: domain.RoleAdmin}, Credential: "tok-a1"}
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func approvedProduct(id string, stock int, p string) domain.Product {
	return domain.Product{ID: id, Title: "Item " + id, Price: price(p), AvailableQuantity: stock, VendorID: "v1", Status: domain.StatusApproved}
}

var errTransport = fmt.Errorf("post approve: %w", domain.ErrNetwork)
