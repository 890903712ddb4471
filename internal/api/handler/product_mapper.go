package handler

import "github.com/vendorhub/storefront/internal/core/domain"

func toSubmission(req submitProductRequest) domain.ProductSubmission {
	title := req.Title
	if title == "" {
		title = req.Name
	}
	return domain.ProductSubmission{
		Title:             title,
		Description:       req.Description,
		Category:          req.Category,
		Price:             req.Price,
		AvailableQuantity: req.Quantity,
		ImageRef:          req.Image,
	}
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil(products []domain.Product) []domain.Product {
	if products == nil {
		return []domain.Product{}
	}
	return products
}
