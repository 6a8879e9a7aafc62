package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rogerio-castellano/cart-sync/internal/http/middleware"
	"github.com/rogerio-castellano/cart-sync/internal/session"
	"go.uber.org/zap"
)

const maxBodyBytes = 1048576 // one megabyte

// readJSON decodes a single JSON value from the request body into data.
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must have only a single json value")
	}
	return nil
}

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any, headers ...http.Header) error {
	out, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	if len(headers) > 0 {
		for key, value := range headers[0] {
			w.Header()[key] = value
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(out); err != nil {
		return fmt.Errorf("failed to write to response: %w", err)
	}
	return nil
}

// currentSession resolves the caller's cart session, answering 401 when the
// request carries none.
func currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	user, ok := middleware.GetSession(r)
	if !ok {
		http.Error(w, "missing or invalid token", http.StatusUnauthorized)
		return nil, false
	}
	return sessions.Get(r.Context(), user), true
}

// writeResult answers with the cart as it stands after an operation and the
// notices it produced. A failed operation still returns the cart.
func writeResult(w http.ResponseWriter, r *http.Request, res session.Result) {
	resp := CartResponse{Cart: res.Cart, Notices: res.Notices}
	status := http.StatusOK
	if res.Err != nil {
		status = statusFor(res.Err)
		resp.Error = errorText(res.Err)
		if status >= http.StatusInternalServerError {
			logger.Warn("cart operation failed",
				zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(res.Err))
		}
	}
	if err := writeJSON(w, status, resp); err != nil {
		logger.Error("write response failed", zap.Error(err))
	}
}
