package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rogerio-castellano/cart-sync/internal/http/handlers"
	mw "github.com/rogerio-castellano/cart-sync/internal/http/middleware"
	rl "github.com/rogerio-castellano/cart-sync/internal/http/rate_limiter"
	"go.uber.org/zap"
)

type Config struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Limiter        *rl.Limiter
	Logger         *zap.Logger
}

func NewRouter(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.HealthHandler)

	// Public
	r.Group(func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(mw.RateLimit(cfg.Limiter))
		}
		r.Post("/stock/check", handlers.StockCheckHandler)
	})

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(mw.Auth(cfg.JWTSecret))
		if cfg.Limiter != nil {
			r.Use(mw.RateLimit(cfg.Limiter))
		}

		r.Get("/cart", handlers.GetCartHandler)
		r.Delete("/cart", handlers.ClearCartHandler)
		r.Post("/cart/flush", handlers.FlushHandler)

		r.Post("/cart/items", handlers.AddItemHandler)
		r.Delete("/cart/items/{key}", handlers.RemoveItemHandler)
		r.Patch("/cart/items/{key}", handlers.AdjustQuantityHandler)
		r.Put("/cart/items/{key}", handlers.SetQuantityHandler)

		r.Post("/cart/coupon", handlers.ApplyCouponHandler)
		r.Delete("/cart/coupon", handlers.RemoveCouponHandler)

		r.Post("/session/logout", handlers.LogoutHandler)
	})

	return r
}
