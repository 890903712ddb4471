package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/vendorhub/storefront/internal/api/middleware"
	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/ports"
)

type stubProductService struct {
	products  []domain.Product
	submitted domain.ProductSubmission
	key       string
	replay    bool
	purged    bool
	err       error
}

func (s *stubProductService) ListApproved(ctx context.Context) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubProductService) ListByVendor(ctx context.Context, actor domain.Identity) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubProductService) ListPending(ctx context.Context, actor domain.Identity) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubProductService) Submit(ctx context.Context, actor domain.Identity, in domain.ProductSubmission, key string) (*ports.SubmitResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.submitted, s.key = in, key
	return &ports.SubmitResult{
		Product:        domain.Product{ID: "p1", Title: in.Title, Price: in.Price, VendorID: actor.ID, Status: domain.StatusPending},
		AlreadyExisted: s.replay,
	}, nil
}

func (s *stubProductService) Approve(ctx context.Context, actor domain.Identity, id string) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: id, Status: domain.StatusApproved}, nil
}

func (s *stubProductService) Reject(ctx context.Context, actor domain.Identity, id string, purge bool) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.purged = purge
	return &domain.Product{ID: id, Status: domain.StatusRejected}, nil
}

func (s *stubProductService) History(ctx context.Context, actor domain.Identity, id string) ([]domain.ModerationEvent, error) {
	return nil, s.err
}

var (
	vendor = domain.Identity{ID: "v1", Email: "v@example.com", Role: domain.RoleVendor}
	admin  = domain.Identity{ID: "a1", Email: "a@example.com", Role: domain.RoleAdmin}
)

func actorContext(method, target, body string, actor *domain.Identity) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := jsonContext(method, target, body)
	if actor != nil {
		c.Set(middleware.ActorKey, *actor)
	}
	return c, rec
}

func TestProductHandler_ListApproved_EmptyIsArray(t *testing.T) {
	h := NewProductHandler(&stubProductService{})
	c, rec := jsonContext(http.MethodGet, "/api/products", "")

	if err := h.ListApproved(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected [], got %s", got)
	}
}

func TestProductHandler_ListPending_WrapsProducts(t *testing.T) {
	stub := &stubProductService{products: []domain.Product{{ID: "p1", Status: domain.StatusPending}}}
	h := NewProductHandler(stub)
	c, rec := actorContext(http.MethodGet, "/api/products/pending", "", &admin)

	if err := h.ListPending(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Products) != 1 || resp.Products[0].ID != "p1" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestProductHandler_Submit_Created(t *testing.T) {
	stub := &stubProductService{}
	h := NewProductHandler(stub)
	c, rec := actorContext(http.MethodPost, "/api/products",
		`{"title":"Lamp","description":"Desk lamp","price":20,"category":"home","quantity":3}`, &vendor)
	c.Request().Header.Set("Idempotency-Key", "k-1")

	if err := h.Submit(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if stub.key != "k-1" {
		t.Fatalf("idempotency key not forwarded: %q", stub.key)
	}
	if !stub.submitted.Price.Equal(decimal.NewFromInt(20)) || stub.submitted.AvailableQuantity != 3 {
		t.Fatalf("unexpected submission: %+v", stub.submitted)
	}
}

func TestProductHandler_Submit_LegacyNameField(t *testing.T) {
	stub := &stubProductService{}
	h := NewProductHandler(stub)
	c, _ := actorContext(http.MethodPost, "/api/products", `{"name":"Lamp","description":"d","price":1}`, &vendor)

	if err := h.Submit(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if stub.submitted.Title != "Lamp" {
		t.Fatalf("name should fill title, got %q", stub.submitted.Title)
	}
}

func TestProductHandler_Submit_Replay(t *testing.T) {
	h := NewProductHandler(&stubProductService{replay: true})
	c, rec := actorContext(http.MethodPost, "/api/products", `{"title":"Lamp","description":"d","price":1}`, &vendor)

	if err := h.Submit(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
	if rec.Header().Get(HeaderIdempotentReplay) != "true" {
		t.Fatalf("expected replay header")
	}
}

func TestProductHandler_Submit_RequiresActor(t *testing.T) {
	h := NewProductHandler(&stubProductService{})
	c, _ := actorContext(http.MethodPost, "/api/products", `{}`, nil)

	if code := httpCode(t, h.Submit(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestProductHandler_Approve(t *testing.T) {
	h := NewProductHandler(&stubProductService{})
	c, rec := actorContext(http.MethodPut, "/api/products/approve/p1", "", &admin)
	c.SetParamNames("id")
	c.SetParamValues("p1")

	if err := h.Approve(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp moderationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Product.ID != "p1" || resp.Product.Status != domain.StatusApproved {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestProductHandler_DeletePurges(t *testing.T) {
	stub := &stubProductService{}
	h := NewProductHandler(stub)
	c, rec := actorContext(http.MethodDelete, "/api/products/p1", "", &admin)
	c.SetParamNames("id")
	c.SetParamValues("p1")

	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !stub.purged {
		t.Fatalf("DELETE must purge the record")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestProductHandler_RejectKeepsRecord(t *testing.T) {
	stub := &stubProductService{}
	h := NewProductHandler(stub)
	c, _ := actorContext(http.MethodPut, "/api/products/reject/p1", "", &admin)
	c.SetParamNames("id")
	c.SetParamValues("p1")

	if err := h.Reject(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if stub.purged {
		t.Fatalf("PUT reject must keep the record")
	}
}

func TestProductHandler_PropagatesConflict(t *testing.T) {
	h := NewProductHandler(&stubProductService{err: domain.ErrInvalidTransition})
	c, _ := actorContext(http.MethodPut, "/api/products/approve/p1", "", &admin)
	c.SetParamNames("id")
	c.SetParamValues("p1")

	if err := h.Approve(c); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestProductHandler_HistoryEmptyIsArray(t *testing.T) {
	h := NewProductHandler(&stubProductService{})
	c, rec := actorContext(http.MethodGet, "/api/products/p1/history", "", &admin)
	c.SetParamNames("id")
	c.SetParamValues("p1")

	if err := h.History(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"events":[]}` {
		t.Fatalf("unexpected body: %s", got)
	}
}
