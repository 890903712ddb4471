package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/service"
	"github.com/vendorhub/storefront/internal/infrastructure/db/memory"
	"github.com/vendorhub/storefront/internal/infrastructure/queue"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T) (*echo.Echo, *memory.AuditRepository) {
	t.Helper()
	audit := memory.NewAuditRepository()
	dispatcher := queue.NewDispatcher(2, audit, zerolog.Nop())
	dispatcher.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = dispatcher.Close(ctx)
	})

	products := service.NewProductService(memory.NewProductRepository(), memory.NewIdempotencyStore(), audit, dispatcher, zerolog.Nop())
	auth := service.NewAuthService(memory.NewUserRepository(), testSecret, time.Hour)
	return NewRouter(Deps{Products: products, Auth: auth, JWTSecret: testSecret, Log: zerolog.Nop()}), audit
}

func do(t *testing.T, e *echo.Echo, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func signup(t *testing.T, e *echo.Echo, email, role string) string {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/auth/register", "",
		`{"name":"`+role+`","email":"`+email+`","password":"password123","role":"`+role+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, rec.Code, rec.Body.String())
	}
	rec = do(t, e, http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"password123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login response: %v %s", err, rec.Body.String())
	}
	return resp.Token
}

func decodeProduct(t *testing.T, rec *httptest.ResponseRecorder) domain.Product {
	t.Helper()
	var p domain.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("invalid product json: %v", err)
	}
	return p
}

func TestRouter_ModerationFlow(t *testing.T) {
	e, audit := newTestRouter(t)
	vendorToken := signup(t, e, "vendor@example.com", "vendor")
	adminToken := signup(t, e, "admin@example.com", "admin")
	customerToken := signup(t, e, "shopper@example.com", "user")

	rec := do(t, e, http.MethodPost, "/api/products", vendorToken,
		`{"title":"Lamp","description":"Desk lamp","price":20,"category":"home","quantity":3}`, "Idempotency-Key", "k-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	created := decodeProduct(t, rec)
	if created.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}

	rec = do(t, e, http.MethodPost, "/api/products", vendorToken,
		`{"title":"Lamp","description":"Desk lamp","price":20,"category":"home","quantity":3}`, "Idempotency-Key", "k-1")
	if rec.Code != http.StatusOK || decodeProduct(t, rec).ID != created.ID {
		t.Fatalf("replay should return the original product: %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, e, http.MethodPost, "/api/products", customerToken, `{"title":"x","description":"y","price":1}`); rec.Code != http.StatusForbidden {
		t.Fatalf("customer submit: expected 403, got %d", rec.Code)
	}
	if rec := do(t, e, http.MethodPut, "/api/products/approve/"+created.ID, vendorToken, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("vendor approve: expected 403, got %d", rec.Code)
	}

	rec = do(t, e, http.MethodGet, "/api/products", "", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("pending product must not be public: %s", rec.Body.String())
	}

	rec = do(t, e, http.MethodPut, "/api/products/approve/"+created.ID, adminToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodDelete, "/api/products/"+created.ID, adminToken, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("reject after approve: expected 409, got %d", rec.Code)
	}
	var msg errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil || msg.Message == "" {
		t.Fatalf("conflict must carry a message: %s", rec.Body.String())
	}

	rec = do(t, e, http.MethodGet, "/api/products", "", "")
	var public []domain.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &public); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(public) != 1 || public[0].ID != created.ID || public[0].Status != domain.StatusApproved {
		t.Fatalf("unexpected catalog: %+v", public)
	}

	deadline := time.Now().Add(time.Second)
	for {
		events, _ := audit.ListModerationEvents(context.Background(), created.ID)
		if len(events) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("approval was not audited, events=%+v", events)
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec = do(t, e, http.MethodGet, "/api/products/"+created.ID+"/history", adminToken, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"to":"approved"`) {
		t.Fatalf("history: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_PendingAndMine(t *testing.T) {
	e, _ := newTestRouter(t)
	vendorToken := signup(t, e, "vendor@example.com", "vendor")
	adminToken := signup(t, e, "admin@example.com", "admin")

	for _, title := range []string{"First", "Second"} {
		rec := do(t, e, http.MethodPost, "/api/products", vendorToken, `{"title":"`+title+`","description":"d","price":5,"quantity":1}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("submit %s: %d %s", title, rec.Code, rec.Body.String())
		}
	}

	rec := do(t, e, http.MethodGet, "/api/products/pending", adminToken, "")
	var pending struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(pending.Products) != 2 || pending.Products[0].Title != "First" {
		t.Fatalf("unexpected pending queue: %s", rec.Body.String())
	}

	if rec := do(t, e, http.MethodGet, "/api/products/pending", vendorToken, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("vendor pending: expected 403, got %d", rec.Code)
	}

	rec = do(t, e, http.MethodGet, "/api/products/my-products", vendorToken, "")
	var mine []domain.Product
	if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 own products, got %d", len(mine))
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	e, _ := newTestRouter(t)

	rec := do(t, e, http.MethodGet, "/api/products/pending", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message"`) {
		t.Fatalf("expected message envelope, got %s", rec.Body.String())
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	e, _ := newTestRouter(t)

	if rec := do(t, e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec := do(t, e, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: %d", rec.Code)
	}
	rec := do(t, e, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "marketplace_requests_total") {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestRouter_IndependentRegistries(t *testing.T) {
	// Building a second router must not panic on duplicate collectors.
	newTestRouter(t)
	newTestRouter(t)
}
