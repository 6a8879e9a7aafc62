package handlers

import "github.com/rogerio-castellano/cart-sync/internal/models"

type CartResponse struct {
	Cart    models.Snapshot `json:"cart"`
	Notices []models.Notice `json:"notices"`
	Error   string          `json:"error,omitempty"`
}

type AddItemRequest struct {
	Product      models.Product `json:"product"`
	Quantity     int            `json:"quantity"`
	SelectedSize *string        `json:"selectedSize,omitempty"`
}

type QuantityAdjustmentRequest struct {
	Delta int `json:"delta"` // can be positive or negative
}

type SetQuantityRequest struct {
	Quantity   int  `json:"quantity"`
	Optimistic bool `json:"optimistic"`
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}

type StockCheckRequest struct {
	Product      models.Product `json:"product"`
	SelectedSize *string        `json:"selectedSize,omitempty"`
	Quantity     int            `json:"quantity"`
}

type StockCheckResponse struct {
	IsValid        bool   `json:"isValid"`
	AvailableStock int    `json:"availableStock"`
	Indeterminate  bool   `json:"indeterminate"`
	OutOfStock     bool   `json:"outOfStock"`
	Message        string `json:"message,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}
