package handlers

import (
	"net/http"

	"github.com/rogerio-castellano/cart-sync/internal/stock"
)

// StockCheckHandler godoc
// @Summary Check a quantity against stock
// @Description Resolves the stock of a product and size and validates a requested quantity without touching any cart
// @Tags stock
// @Accept json
// @Produce json
// @Param request body StockCheckRequest true "Product, size and quantity"
// @Success 200 {object} StockCheckResponse
// @Failure 400 {array} ValidationError
// @Router /stock/check [post]
func StockCheckHandler(w http.ResponseWriter, r *http.Request) {
	var req StockCheckRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	if validationErrors := validateStockCheck(req); len(validationErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, validationErrors)
		return
	}

	v := stock.ValidateRequestedQuantity(req.Product, req.SelectedSize, req.Quantity)
	_, resolved := stock.ResolveAvailableStock(req.Product, req.SelectedSize)
	writeJSON(w, http.StatusOK, StockCheckResponse{
		IsValid:        v.IsValid,
		AvailableStock: v.AvailableStock,
		Indeterminate:  !resolved,
		OutOfStock:     stock.IsOutOfStock(req.Product, req.SelectedSize),
		Message:        v.Message,
	})
}
