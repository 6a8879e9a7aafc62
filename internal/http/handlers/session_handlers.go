package handlers

import (
	"net/http"

	"github.com/rogerio-castellano/cart-sync/internal/http/middleware"
	"go.uber.org/zap"
)

// LogoutHandler godoc
// @Summary End the cart session
// @Description Writes pending changes, closes the session and forgets the cached cart
// @Tags session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 502 {object} MessageResponse
// @Router /session/logout [post]
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetSession(r)
	if !ok {
		http.Error(w, "missing or invalid token", http.StatusUnauthorized)
		return
	}

	if err := sessions.Logout(r.Context(), user.UserID); err != nil {
		logger.Warn("logout did not complete cleanly", zap.String("user_id", user.UserID), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, MessageResponse{Message: "logged out, but some cart changes could not be saved"})
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// HealthHandler godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Sessions: sessions.Len()})
}
