// Package cartapi is the REST client for the remote cart and coupon service.
package cartapi

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

	"github.com/google/uuid"
	"github.com/rogerio-castellano/cart-sync/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1048576 // one megabyte

// Config holds the cart service connection settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int
}

// Client talks to the cart service on behalf of one shopper. Clients derived
// with WithToken share the underlying HTTP client and the outbound limiter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a client with no bearer token.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cart service base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid cart service base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, cfg.Burst))
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		limiter:    limiter,
		logger:     logger.Named("cartapi"),
	}, nil
}

// WithToken returns a client that authenticates as the holder of token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

type addItemRequest struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Size      *string `json:"size,omitempty"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type applyCouponRequest struct {
	Code      string  `json:"code"`
	CartTotal float64 `json:"cartTotal"`
}

type cartResponse struct {
	Items []models.CartItem `json:"items"`
}

type couponEnvelope struct {
	Coupon *models.Coupon `json:"coupon"`
}

// FetchCart returns the shopper's cart lines in server order.
func (c *Client) FetchCart(ctx context.Context) ([]models.CartItem, error) {
	var resp cartResponse
	if err := c.do(ctx, "fetch cart", http.MethodGet, "/cart", nil, &resp); err != nil {
		return nil, err
	}
	items := make([]models.CartItem, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Price == 0 {
			item.Price = item.Product.Price
		}
		if item.SelectedSize != nil && *item.SelectedSize == "" {
			item.SelectedSize = nil
		}
		items = append(items, item)
	}
	return items, nil
}

// AddItem adds quantity units of a product, optionally in a size.
func (c *Client) AddItem(ctx context.Context, productID string, quantity int, size *string) error {
	body := addItemRequest{ProductID: productID, Quantity: quantity, Size: size}
	return c.do(ctx, "add item", http.MethodPost, "/cart", body, nil)
}

// RemoveItem deletes a cart line. A missing line yields an error for which
// IsNotFound is true.
func (c *Client) RemoveItem(ctx context.Context, itemID string) error {
	return c.do(ctx, "remove item", http.MethodDelete, "/cart/"+url.PathEscape(itemID), nil, nil)
}

// UpdateQuantity sets the quantity of a cart line.
func (c *Client) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	body := updateQuantityRequest{Quantity: quantity}
	return c.do(ctx, "update quantity", http.MethodPut, "/cart/"+url.PathEscape(itemID), body, nil)
}

// FetchActiveCoupon returns the coupon currently attached to the shopper, or
// nil when there is none.
func (c *Client) FetchActiveCoupon(ctx context.Context) (*models.Coupon, error) {
	var raw json.RawMessage
	err := c.do(ctx, "fetch coupon", http.MethodGet, "/coupons/active", nil, &raw)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeCoupon(raw)
}

// ApplyCoupon asks the service to validate code against the current subtotal.
func (c *Client) ApplyCoupon(ctx context.Context, code string, subtotal float64) (models.Coupon, error) {
	var raw json.RawMessage
	body := applyCouponRequest{Code: code, CartTotal: subtotal}
	if err := c.do(ctx, "apply coupon", http.MethodPost, "/coupons/apply", body, &raw); err != nil {
		return models.Coupon{}, err
	}
	coupon, err := decodeCoupon(raw)
	if err != nil {
		return models.Coupon{}, err
	}
	if coupon == nil {
		return models.Coupon{}, &APIError{Op: "apply coupon", StatusCode: http.StatusOK, Message: "coupon was not returned", Err: ErrUpstream}
	}
	return *coupon, nil
}

// decodeCoupon accepts either a bare coupon object or {"coupon": {...}}.
func decodeCoupon(raw json.RawMessage) (*models.Coupon, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	var env couponEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Coupon != nil {
		return env.Coupon, nil
	}
	var coupon models.Coupon
	if err := json.Unmarshal(raw, &coupon); err != nil {
		return nil, fmt.Errorf("decode coupon: %w", err)
	}
	if coupon.Code == "" {
		return nil, nil
	}
	return &coupon, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return newTransportError(op, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("cart service request failed",
			zap.String("op", op), zap.String("request_id", requestID), zap.Error(err))
		return newTransportError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return newTransportError(op, err)
	}

	c.logger.Debug("cart service request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID))

	if resp.StatusCode >= 300 {
		return newStatusError(op, resp.StatusCode, errorMessage(data))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Err: errors.Join(ErrUpstream, err)}
	}
	return nil
}

// errorMessage pulls a human readable message out of an error body.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		return body.Error
	}
	return ""
}
