package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/ports"
	"github.com/vendorhub/storefront/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Stub recorder
// ---------------------------------------------------------------------------

type stubRecorder struct {
	mu     sync.Mutex
	events []domain.ModerationEvent
	audit  ports.AuditRepository
}

// Enqueue writes synchronously so tests can read History right away.
func (r *stubRecorder) Enqueue(e domain.ModerationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	_ = r.audit.InsertModerationEvent(context.Background(), &e)
}

var (
	adminActor    = domain.Identity{ID: "a1", Role: domain.RoleAdmin}
	vendorActor   = domain.Identity{ID: "v1", Role: domain.RoleVendor}
	otherVendor   = domain.Identity{ID: "v2", Role: domain.RoleVendor}
	customerActor = domain.Identity{ID: "c1", Role: domain.RoleCustomer}
)

func newProductFixture() (ports.ProductService, *memory.ProductRepository, *stubRecorder) {
	repo := memory.NewProductRepository()
	audit := memory.NewAuditRepository()
	rec := &stubRecorder{audit: audit}
	svc := NewProductService(repo, memory.NewIdempotencyStore(), audit, rec, zerolog.Nop())
	return svc, repo, rec
}

func lamp() domain.ProductSubmission {
	return domain.ProductSubmission{Title: "Lamp", Description: "Desk lamp", Price: decimal.RequireFromString("20"), AvailableQuantity: 3}
}

func mustSubmit(t *testing.T, svc ports.ProductService, actor domain.Identity) domain.Product {
	t.Helper()
	res, err := svc.Submit(context.Background(), actor, lamp(), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return res.Product
}

func TestProductService_Submit(t *testing.T) {
	svc, _, _ := newProductFixture()
	res, err := svc.Submit(context.Background(), vendorActor, lamp(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := res.Product
	if p.ID == "" || p.Status != domain.StatusPending || p.VendorID != "v1" || p.CreatedAt.IsZero() {
		t.Errorf("unexpected product %+v", p)
	}
	if res.AlreadyExisted {
		t.Error("first submission must not be a replay")
	}
}

func TestProductService_Submit_IdempotentReplay(t *testing.T) {
	svc, _, _ := newProductFixture()
	ctx := context.Background()

	first, err := svc.Submit(ctx, vendorActor, lamp(), "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Submit(ctx, vendorActor, lamp(), "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.AlreadyExisted || second.Product.ID != first.Product.ID {
		t.Errorf("expected replay of %s, got %+v", first.Product.ID, second)
	}

	other, _ := svc.Submit(ctx, otherVendor, lamp(), "key-1")
	if other.AlreadyExisted {
		t.Error("keys must be scoped to the submitting vendor")
	}

	mine, _ := svc.ListByVendor(ctx, vendorActor)
	if len(mine) != 1 {
		t.Errorf("expected one product for v1, got %d", len(mine))
	}
}

func TestProductService_Submit_Rejections(t *testing.T) {
	svc, _, _ := newProductFixture()
	ctx := context.Background()

	for _, actor := range []domain.Identity{customerActor, adminActor, {}} {
		if _, err := svc.Submit(ctx, actor, lamp(), ""); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("role %s: expected ErrUnauthorized, got %v", actor.Role, err)
		}
	}

	bad := lamp()
	bad.Price = decimal.RequireFromString("-0.01")
	if _, err := svc.Submit(ctx, vendorActor, bad, ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestProductService_ApproveAndRejectTable(t *testing.T) {
	tests := []struct {
		name     string
		first    domain.Decision
		second   domain.Decision
		wantErr  error
		wantLast domain.ProductStatus
	}{
		{"approve twice", domain.DecisionApprove, domain.DecisionApprove, nil, domain.StatusApproved},
		{"reject twice", domain.DecisionReject, domain.DecisionReject, nil, domain.StatusRejected},
		{"reject after approve", domain.DecisionApprove, domain.DecisionReject, domain.ErrInvalidTransition, domain.StatusApproved},
		{"approve after reject", domain.DecisionReject, domain.DecisionApprove, domain.ErrInvalidTransition, domain.StatusRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, rec := newProductFixture()
			ctx := context.Background()
			p := mustSubmit(t, svc, vendorActor)

			decide := func(d domain.Decision) (*domain.Product, error) {
				if d == domain.DecisionApprove {
					return svc.Approve(ctx, adminActor, p.ID)
				}
				return svc.Reject(ctx, adminActor, p.ID, false)
			}

			if _, err := decide(tt.first); err != nil {
				t.Fatalf("first decision: %v", err)
			}
			_, err := decide(tt.second)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("second decision: unexpected error %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("second decision: expected %v, got %v", tt.wantErr, err)
			}

			stored, _ := repo.FindByID(ctx, p.ID)
			if stored.Status != tt.wantLast {
				t.Errorf("expected %s, got %s", tt.wantLast, stored.Status)
			}
			if len(rec.events) != 1 {
				t.Errorf("expected exactly one audited transition, got %d", len(rec.events))
			}
		})
	}
}

func TestProductService_OnlyAdminModerates(t *testing.T) {
	svc, repo, rec := newProductFixture()
	ctx := context.Background()
	p := mustSubmit(t, svc, vendorActor)

	for _, actor := range []domain.Identity{vendorActor, customerActor, {}} {
		if _, err := svc.Approve(ctx, actor, p.ID); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("role %s: expected ErrUnauthorized, got %v", actor.Role, err)
		}
		if _, err := svc.Reject(ctx, actor, p.ID, true); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("role %s: expected ErrUnauthorized, got %v", actor.Role, err)
		}
	}
	stored, _ := repo.FindByID(ctx, p.ID)
	if stored.Status != domain.StatusPending || len(rec.events) != 0 {
		t.Errorf("denied decisions must change nothing, got %s and %d events", stored.Status, len(rec.events))
	}
}

func TestProductService_RejectWithPurge(t *testing.T) {
	svc, repo, _ := newProductFixture()
	ctx := context.Background()
	p := mustSubmit(t, svc, vendorActor)

	got, err := svc.Reject(ctx, adminActor, p.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.StatusRejected {
		t.Errorf("expected rejected, got %s", got.Status)
	}
	if _, err := repo.FindByID(ctx, p.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected product purged, got %v", err)
	}

	history, err := svc.History(ctx, adminActor, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 1 || !history[0].Deleted || history[0].From != domain.StatusPending || history[0].To != domain.StatusRejected {
		t.Errorf("unexpected history %+v", history)
	}

	if _, err := svc.History(ctx, vendorActor, p.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected vendor denied history, got %v", err)
	}
}

func TestProductService_UnknownProduct(t *testing.T) {
	svc, _, _ := newProductFixture()
	if _, err := svc.Approve(context.Background(), adminActor, "nope"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductService_Listings(t *testing.T) {
	svc, _, _ := newProductFixture()
	ctx := context.Background()
	a := mustSubmit(t, svc, vendorActor)
	mustSubmit(t, svc, vendorActor)
	mustSubmit(t, svc, otherVendor)
	if _, err := svc.Approve(ctx, adminActor, a.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	approved, _ := svc.ListApproved(ctx)
	if len(approved) != 1 || approved[0].ID != a.ID {
		t.Errorf("expected only %s approved, got %+v", a.ID, approved)
	}
	pending, err := svc.ListPending(ctx, adminActor)
	if err != nil || len(pending) != 2 {
		t.Errorf("expected 2 pending, got %d (%v)", len(pending), err)
	}
	if _, err := svc.ListPending(ctx, vendorActor); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected vendor denied the queue, got %v", err)
	}
	mine, _ := svc.ListByVendor(ctx, otherVendor)
	if len(mine) != 1 || mine[0].VendorID != "v2" {
		t.Errorf("expected v2's single product, got %+v", mine)
	}
	if _, err := svc.ListByVendor(ctx, customerActor); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected customer denied, got %v", err)
	}
}
