package handlers

import (
	"slices"
	"strings"
)

type ValidationError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

func validateProduct(errs []ValidationError, p AddItemRequest) []ValidationError {
	if strings.TrimSpace(p.Product.ID) == "" {
		errs = append(errs, ValidationError{Field: "product.id", Description: "product id is required"})
	}
	if p.Product.Price < 0 {
		errs = append(errs, ValidationError{Field: "product.price", Description: "price cannot be negative"})
	}
	if p.SelectedSize != nil && len(p.Product.Sizes) > 0 && !slices.Contains(p.Product.Sizes, *p.SelectedSize) {
		errs = append(errs, ValidationError{Field: "selectedSize", Description: "size is not offered for this product"})
	}
	return errs
}

func validateAddItem(req AddItemRequest) []ValidationError {
	return validateProduct([]ValidationError{}, req)
}

func validateStockCheck(req StockCheckRequest) []ValidationError {
	return validateProduct([]ValidationError{}, AddItemRequest{
		Product:      req.Product,
		Quantity:     req.Quantity,
		SelectedSize: req.SelectedSize,
	})
}
