package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/ports"
)

// HeaderIdempotentReplay is set on a submit answered from an earlier request.
const HeaderIdempotentReplay = "Idempotent-Replayed"

// ProductHandler serves the catalog and moderation endpoints.
type ProductHandler struct {
	service ports.ProductService
}

func NewProductHandler(service ports.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// ListApproved returns the public catalog.
//
// @Summary      List approved products
// @Tags         products
// @Produce      json
// @Success      200  {array}   domain.Product
// @Failure      500  {object}  errorResponse
// @Router       /api/products [get]
func (h *ProductHandler) ListApproved(c echo.Context) error {
	products, err := h.service.ListApproved(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(products))
}

// ListMine returns the calling vendor's products in every status.
//
// @Summary      List my products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Product
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/products/my-products [get]
func (h *ProductHandler) ListMine(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	products, err := h.service.ListByVendor(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(products))
}

// ListPending returns the moderation queue, oldest first.
//
// @Summary      List pending products
// @Tags         moderation
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  productListResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/products/pending [get]
func (h *ProductHandler) ListPending(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	products, err := h.service.ListPending(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, productListResponse{Products: nonNil(products)})
}

// Submit creates a pending product. A repeated Idempotency-Key returns the
// original product with 200 instead of 201.
//
// @Summary      Submit a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                false  "Client-generated key for safe retries"
// @Param        body             body      submitProductRequest  true   "Product details"
// @Success      201              {object}  domain.Product
// @Success      200              {object}  domain.Product
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Submit(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req submitProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.service.Submit(c.Request().Context(), actor, toSubmission(req), c.Request().Header.Get("Idempotency-Key"))
	if err != nil {
		return err
	}
	if res.AlreadyExisted {
		c.Response().Header().Set(HeaderIdempotentReplay, "true")
		return c.JSON(http.StatusOK, res.Product)
	}
	return c.JSON(http.StatusCreated, res.Product)
}

// Approve moves a pending product to approved.
//
// @Summary      Approve a product
// @Tags         moderation
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  moderationResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /api/products/approve/{id} [put]
func (h *ProductHandler) Approve(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	p, err := h.service.Approve(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, moderationResponse{Message: "Product approved", Product: *p})
}

// Reject moves a pending product to rejected and keeps the record.
//
// @Summary      Reject a product
// @Tags         moderation
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  moderationResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /api/products/reject/{id} [put]
func (h *ProductHandler) Reject(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	p, err := h.service.Reject(c.Request().Context(), actor, c.Param("id"), false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, moderationResponse{Message: "Product rejected", Product: *p})
}

// Delete rejects a pending product and removes its record.
//
// @Summary      Reject and delete a product
// @Tags         moderation
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	if _, err := h.service.Reject(c.Request().Context(), actor, c.Param("id"), true); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Product rejected"})
}

// History returns the moderation decisions recorded for a product.
//
// @Summary      Moderation history
// @Tags         moderation
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  historyResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/products/{id}/history [get]
func (h *ProductHandler) History(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	events, err := h.service.History(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	if events == nil {
		events = []domain.ModerationEvent{}
	}
	return c.JSON(http.StatusOK, historyResponse{Events: events})
}
