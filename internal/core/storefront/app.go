package storefront

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/policy"
	"github.com/vendorhub/storefront/internal/core/ports"
	"github.com/vendorhub/storefront/internal/pkg/validation"
)

// App wires the client core together for one user at one terminal. The
// session is read from the SessionStore on every call and passed down
// explicitly.
type App struct {
	Sessions  *SessionStore
	Moderator *Moderator
	Catalog   *Catalog
	Cart      *Cart

	accounts ports.AccountBackend
	products ports.ProductBackend
	validate *validation.Validator
	retry    RetryPolicy
	log      zerolog.Logger
}

type Backend interface {
	ports.ProductBackend
	ports.AccountBackend
}

func NewApp(backend Backend, storage ports.KeyValueStore, log zerolog.Logger) *App {
	moderator := NewModerator(backend, log.With().Str("component", "moderator").Logger())
	return &App{
		Sessions:  NewSessionStore(storage, log.With().Str("component", "session").Logger()),
		Moderator: moderator,
		Catalog:   NewCatalog(backend, moderator, log.With().Str("component", "catalog").Logger()),
		Cart:      NewCart(log.With().Str("component", "cart").Logger()),
		accounts:  backend,
		products:  backend,
		validate:  validation.New(),
		retry:     DefaultRetry,
		log:       log,
	}
}

// WithRetry replaces the retry policy used for moderation decisions.
func (a *App) WithRetry(p RetryPolicy) *App {
	a.retry = p
	return a
}

// Start restores the persisted session.
func (a *App) Start(ctx context.Context) *domain.Session {
	s := a.Sessions.Restore(ctx)
	if s.Authenticated() {
		a.log.Info().Str("user_id", s.ActorID()).Str("role", s.Role().String()).Msg("session restored")
	}
	return s
}

func (a *App) Session() *domain.Session {
	return a.Sessions.Current()
}

// Login authenticates against the backend and persists the session. A cart
// built by another identity does not survive the switch.
func (a *App) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	issued, err := a.accounts.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	previous := a.Sessions.Current()
	if err := a.Sessions.Establish(ctx, issued.Identity, issued.Credential); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if previous.ActorID() != issued.Identity.ID {
		a.Cart.Clear()
		a.Moderator.Forget()
	}
	a.log.Info().Str("user_id", issued.Identity.ID).Str("role", issued.Identity.Role.String()).Msg("logged in")
	return a.Sessions.Current(), nil
}

// Register creates an account. It does not log in.
func (a *App) Register(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error) {
	if err := a.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	id, err := a.accounts.Register(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return id, nil
}

// Logout forgets the session together with everything bound to it.
func (a *App) Logout(ctx context.Context) error {
	a.Cart.Clear()
	a.Moderator.Forget()
	if err := a.Sessions.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (a *App) Products(ctx context.Context) ([]domain.Product, error) {
	return a.Catalog.VisibleProducts(ctx, a.Session())
}

func (a *App) Pending(ctx context.Context) ([]domain.Product, error) {
	return a.Catalog.PendingQueue(ctx, a.Session())
}

// AddToCart adds a product the catalog has already shown.
func (a *App) AddToCart(productID string, qty int) (CartEntry, error) {
	p, ok := a.Moderator.Product(productID)
	if !ok {
		return CartEntry{}, fmt.Errorf("add to cart: %w", domain.ErrProductNotFound)
	}
	return a.Cart.Add(a.Session(), p, qty)
}

// ReconcileCart refreshes stock from the public listing and returns the ids
// of the cart entries it capped or dropped.
func (a *App) ReconcileCart(ctx context.Context) ([]string, error) {
	var listed []domain.Product
	err := a.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		listed, err = a.products.ListApproved(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile cart: %w", err)
	}
	a.Moderator.Observe(listed...)
	return a.Cart.Reconcile(listed), nil
}

func (a *App) Submit(ctx context.Context, in domain.ProductSubmission) (*domain.Product, error) {
	return a.Moderator.Submit(ctx, a.Session(), in)
}

// Approve retries transport failures; a conflict or denial is final.
func (a *App) Approve(ctx context.Context, productID string) (*domain.Product, error) {
	var p *domain.Product
	err := a.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		p, err = a.Moderator.Approve(ctx, a.Session(), productID)
		return err
	})
	return p, err
}

func (a *App) Reject(ctx context.Context, productID string) (*domain.Product, error) {
	var p *domain.Product
	err := a.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		p, err = a.Moderator.Reject(ctx, a.Session(), productID)
		return err
	})
	return p, err
}

// Stats summarises the vendor's own listings.
func (a *App) Stats(ctx context.Context) (VendorStats, error) {
	if err := policy.Authorize(a.Session(), policy.ActionViewDashboard, ""); err != nil {
		return VendorStats{}, fmt.Errorf("stats: %w", err)
	}
	if a.Session().Role() != domain.RoleVendor {
		return VendorStats{}, fmt.Errorf("stats: %w: vendor dashboard", domain.ErrUnauthorized)
	}
	own, err := a.Catalog.VisibleProducts(ctx, a.Session())
	if err != nil {
		return VendorStats{}, fmt.Errorf("stats: %w", err)
	}
	return SummarizeVendor(own), nil
}

// CartTotal returns the item count and total price of the cart.
func (a *App) CartTotal() (int, decimal.Decimal) {
	return a.Cart.TotalItems(), a.Cart.TotalPrice()
}
