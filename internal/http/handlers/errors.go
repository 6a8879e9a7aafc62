package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rogerio-castellano/cart-sync/internal/cart"
	"github.com/rogerio-castellano/cart-sync/internal/cartapi"
	"github.com/rogerio-castellano/cart-sync/internal/session"
)

func statusFor(err error) int {
	var apiErr *cartapi.APIError
	switch {
	case cart.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		// The service understood the request and refused it.
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorText(err error) string {
	var v *cart.ValidationError
	switch {
	case errors.As(err, &v):
		return v.Message
	case errors.Is(err, cart.ErrItemNotFound):
		return "cart item not found"
	case errors.Is(err, session.ErrSessionClosed):
		return "session was closed, please retry"
	default:
		return cartapi.UserMessage(err, "cart service unavailable")
	}
}
