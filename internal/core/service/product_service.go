package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vendorhub/storefront/internal/api/metrics"
	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/policy"
	"github.com/vendorhub/storefront/internal/core/ports"
	"github.com/vendorhub/storefront/internal/pkg/validation"
)

type productService struct {
	repo     ports.ProductRepository
	idem     ports.IdempotencyStore
	audit    ports.AuditRepository
	recorder ports.ModerationRecorder
	validate *validation.Validator
	log      zerolog.Logger
	now      func() time.Time
}

// NewProductService returns the backend's ProductService. Applied decisions
// go to recorder; History reads them back from audit.
func NewProductService(
	repo ports.ProductRepository,
	idem ports.IdempotencyStore,
	audit ports.AuditRepository,
	recorder ports.ModerationRecorder,
	log zerolog.Logger,
) ports.ProductService {
	return &productService{
		repo:     repo,
		idem:     idem,
		audit:    audit,
		recorder: recorder,
		validate: validation.New(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *productService) ListApproved(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx, ports.ProductFilter{Status: domain.StatusApproved})
}

func (s *productService) ListByVendor(ctx context.Context, actor domain.Identity) ([]domain.Product, error) {
	if err := allowed(actor, policy.ActionViewOwnProducts); err != nil {
		return nil, fmt.Errorf("list vendor products: %w", err)
	}
	return s.repo.List(ctx, ports.ProductFilter{VendorID: actor.ID})
}

func (s *productService) ListPending(ctx context.Context, actor domain.Identity) ([]domain.Product, error) {
	if err := allowed(actor, policy.ActionViewPendingQueue); err != nil {
		return nil, fmt.Errorf("list pending products: %w", err)
	}
	return s.repo.List(ctx, ports.ProductFilter{Status: domain.StatusPending})
}

// Submit creates a pending product. A repeated Idempotency-Key from the same
// vendor returns the product created the first time without side effects.
func (s *productService) Submit(ctx context.Context, actor domain.Identity, in domain.ProductSubmission, idempotencyKey string) (*ports.SubmitResult, error) {
	if err := allowed(actor, policy.ActionSubmitProduct); err != nil {
		return nil, fmt.Errorf("submit product: %w", err)
	}
	in = in.Normalize()
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("submit product: %w", err)
	}

	if idempotencyKey != "" {
		if existing, ok := s.replay(ctx, actor.ID, idempotencyKey); ok {
			metrics.ProductsSubmittedTotal.WithLabelValues("replayed").Inc()
			return &ports.SubmitResult{Product: *existing, AlreadyExisted: true}, nil
		}
	}

	p := &domain.Product{
		ID:                uuid.NewString(),
		Title:             in.Title,
		Description:       in.Description,
		Category:          in.Category,
		Price:             in.Price,
		AvailableQuantity: in.AvailableQuantity,
		ImageRef:          in.ImageRef,
		VendorID:          actor.ID,
		Status:            domain.StatusPending,
		CreatedAt:         s.now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error().Err(err).Str("vendor_id", actor.ID).Msg("failed to create product")
		metrics.ProductsSubmittedTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("submit product: %w", err)
	}
	if idempotencyKey != "" {
		if err := s.idem.Remember(ctx, actor.ID, idempotencyKey, p.ID); err != nil {
			s.log.Warn().Err(err).Str("product_id", p.ID).Msg("failed to remember idempotency key")
		}
	}

	metrics.ProductsSubmittedTotal.WithLabelValues("created").Inc()
	s.log.Info().Str("product_id", p.ID).Str("vendor_id", actor.ID).Msg("product submitted")
	return &ports.SubmitResult{Product: *p}, nil
}

func (s *productService) replay(ctx context.Context, vendorID, key string) (*domain.Product, bool) {
	id, found, err := s.idem.Lookup(ctx, vendorID, key)
	if err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed, creating anyway")
		return nil, false
	}
	if !found {
		return nil, false
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		// the product may have been rejected and purged since
		s.log.Warn().Err(err).Str("product_id", id).Msg("idempotent replay target missing")
		return nil, false
	}
	s.log.Info().Str("idempotency_key", key).Str("product_id", id).Msg("idempotent replay")
	return existing, true
}

func (s *productService) Approve(ctx context.Context, actor domain.Identity, productID string) (*domain.Product, error) {
	return s.decide(ctx, actor, productID, domain.DecisionApprove, false)
}

func (s *productService) Reject(ctx context.Context, actor domain.Identity, productID string, purge bool) (*domain.Product, error) {
	return s.decide(ctx, actor, productID, domain.DecisionReject, purge)
}

func (s *productService) decide(ctx context.Context, actor domain.Identity, productID string, d domain.Decision, purge bool) (*domain.Product, error) {
	action := policy.ActionApproveProduct
	if d == domain.DecisionReject {
		action = policy.ActionRejectProduct
	}
	if err := allowed(actor, action); err != nil {
		metrics.ModerationDecisionsTotal.WithLabelValues(string(d), "denied").Inc()
		return nil, fmt.Errorf("%s product: %w", d, err)
	}

	p, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		metrics.ModerationDecisionsTotal.WithLabelValues(string(d), "error").Inc()
		return nil, fmt.Errorf("%s product: %w", d, err)
	}

	next, changed, err := p.Status.Resolve(d)
	if err != nil {
		metrics.ModerationDecisionsTotal.WithLabelValues(string(d), "conflict").Inc()
		return nil, fmt.Errorf("%s product %s: %w", d, productID, err)
	}
	if !changed {
		metrics.ModerationDecisionsTotal.WithLabelValues(string(d), "noop").Inc()
		return p, nil
	}

	if err := s.repo.UpdateStatus(ctx, productID, p.Status, next); err != nil {
		result := "error"
		if errors.Is(err, domain.ErrInvalidTransition) {
			result = "conflict"
		}
		metrics.ModerationDecisionsTotal.WithLabelValues(string(d), result).Inc()
		return nil, fmt.Errorf("%s product %s: %w", d, productID, err)
	}

	event := domain.ModerationEvent{
		ProductID: productID,
		Decision:  d,
		From:      p.Status,
		To:        next,
		ActorID:   actor.ID,
		At:        s.now(),
	}
	p.Status = next

	if purge {
		if err := s.repo.Delete(ctx, productID); err != nil {
			s.log.Error().Err(err).Str("product_id", productID).Msg("rejected product not purged")
		} else {
			event.Deleted = true
		}
	}
	s.recorder.Enqueue(event)
	metrics.ModerationDecisionsTotal.WithLabelValues(string(d), "applied").Inc()

	s.log.Info().
		Str("product_id", productID).
		Str("decision", string(d)).
		Str("actor_id", actor.ID).
		Bool("deleted", event.Deleted).
		Msg("moderation applied")
	return p, nil
}

func (s *productService) History(ctx context.Context, actor domain.Identity, productID string) ([]domain.ModerationEvent, error) {
	if err := allowed(actor, policy.ActionViewHistory); err != nil {
		return nil, fmt.Errorf("moderation history: %w", err)
	}
	events, err := s.audit.ListModerationEvents(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("moderation history: %w", err)
	}
	return events, nil
}

func allowed(actor domain.Identity, action policy.Action) error {
	if policy.CanPerform(actor.Role, action, "", actor.ID) == policy.Deny {
		return fmt.Errorf("%w: %s may not %s", domain.ErrUnauthorized, actor.Role, action)
	}
	return nil
}
