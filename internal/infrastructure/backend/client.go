// Package backend is the storefront's HTTP client for the marketplace API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/ports"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	maxErrorBody         = 64 << 10
)

// RejectMode selects how a rejection is sent to the backend.
type RejectMode string

const (
	// RejectDelete sends DELETE /api/products/{id}.
	RejectDelete RejectMode = "delete"
	// RejectStatus sends PUT /api/products/reject/{id}.
	RejectStatus RejectMode = "status"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RejectMode RejectMode
}

// Client implements ports.ProductBackend and ports.AccountBackend.
type Client struct {
	base       *url.URL
	http       *http.Client
	rejectMode RejectMode
	log        zerolog.Logger
}

var (
	_ ports.ProductBackend = (*Client)(nil)
	_ ports.AccountBackend = (*Client)(nil)
)

func New(cfg Config, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	switch cfg.RejectMode {
	case "":
		cfg.RejectMode = RejectDelete
	case RejectDelete, RejectStatus:
	default:
		return nil, fmt.Errorf("backend: unknown reject mode %q", cfg.RejectMode)
	}
	return &Client{
		base:       base,
		http:       &http.Client{Timeout: cfg.Timeout},
		rejectMode: cfg.RejectMode,
		log:        log,
	}, nil
}

// WithHTTPClient replaces the transport, e.g. with an httptest server client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) ListApproved(ctx context.Context) ([]domain.Product, error) {
	var out productList
	if err := c.do(ctx, http.MethodGet, "/api/products", "", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (c *Client) ListMine(ctx context.Context, token domain.Credential) ([]domain.Product, error) {
	var out productList
	if err := c.do(ctx, http.MethodGet, "/api/products/my-products", token, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list my products: %w", err)
	}
	return out, nil
}

func (c *Client) ListPending(ctx context.Context, token domain.Credential) ([]domain.Product, error) {
	var out productList
	if err := c.do(ctx, http.MethodGet, "/api/products/pending", token, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list pending products: %w", err)
	}
	return out, nil
}

func (c *Client) Submit(ctx context.Context, token domain.Credential, in domain.ProductSubmission, idempotencyKey string) (*domain.Product, error) {
	var headers http.Header
	if idempotencyKey != "" {
		headers = http.Header{headerIdempotencyKey: []string{idempotencyKey}}
	}
	var out domain.Product
	if err := c.do(ctx, http.MethodPost, "/api/products", token, headers, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Approve, Reject, Submit, Register and Login return do's error unwrapped;
// the storefront layer names the operation.
func (c *Client) Approve(ctx context.Context, token domain.Credential, productID string) error {
	return c.do(ctx, http.MethodPut, "/api/products/approve/"+url.PathEscape(productID), token, nil, nil, nil)
}

func (c *Client) Reject(ctx context.Context, token domain.Credential, productID string) error {
	method, path := http.MethodDelete, "/api/products/"+url.PathEscape(productID)
	if c.rejectMode == RejectStatus {
		method, path = http.MethodPut, "/api/products/reject/"+url.PathEscape(productID)
	}
	return c.do(ctx, method, path, token, nil, nil, nil)
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", nil, in, &out); err != nil {
		return nil, err
	}
	id := out.User.Identity()
	return &id, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}

	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", nil, body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("%w: response carried no token", domain.ErrInvalidCredentials)
	}
	return &domain.Session{Identity: out.User.Identity(), Credential: domain.Credential(out.Token)}, nil
}

// do sends one request. Non-2xx answers become *domain.BackendError; transport
// failures wrap domain.ErrNetwork. A cancelled ctx is returned as-is.
func (c *Client) do(ctx context.Context, method, path string, token domain.Credential, headers http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+string(token))
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return fmt.Errorf("%w: %s %s: %v", domain.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: decode %s %s response: %v", domain.ErrNetwork, method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	be := &domain.BackendError{Status: resp.StatusCode}
	if json.Unmarshal(raw, &envelope) == nil {
		be.Message = envelope.Message
		if be.Message == "" {
			be.Message = envelope.Error
		}
	}
	return be
}

// productList accepts both a bare array and a {"products": [...]} envelope.
type productList []domain.Product

func (l *productList) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var arr []domain.Product
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return err
		}
		*l = arr
		return nil
	}
	var env struct {
		Products *[]domain.Product `json:"products"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	if env.Products == nil {
		return errors.New("product list: missing products field")
	}
	*l = *env.Products
	return nil
}
