package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rogerio-castellano/cart-sync/internal/cart"
	"github.com/rogerio-castellano/cart-sync/internal/cartapi"
	"github.com/rogerio-castellano/cart-sync/internal/config"
	"github.com/rogerio-castellano/cart-sync/internal/http/handlers"
	rl "github.com/rogerio-castellano/cart-sync/internal/http/rate_limiter"
	"github.com/rogerio-castellano/cart-sync/internal/http/router"
	"github.com/rogerio-castellano/cart-sync/internal/logging"
	"github.com/rogerio-castellano/cart-sync/internal/models"
	"github.com/rogerio-castellano/cart-sync/internal/redissvc"
	"github.com/rogerio-castellano/cart-sync/internal/session"
	"github.com/rogerio-castellano/cart-sync/internal/stock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// @title Cart Sync API
// @version 1.0
// @description Keeps shopper carts consistent with stock and the remote cart service.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "cartsync",
		Short:         "Cart consistency engine",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (yaml, json or toml)")

	root.AddCommand(newServeCmd(&configPath), newCheckStockCmd())
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cart session API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client, err := cartapi.New(cartapi.Config{
		BaseURL:   cfg.CartService.BaseURL,
		Timeout:   cfg.CartService.Timeout,
		RateLimit: cfg.CartService.RateLimit,
		Burst:     cfg.CartService.Burst,
	}, logger)
	if err != nil {
		return err
	}

	var cache session.SnapshotCache = session.NewMemorySnapshotCache()
	if cfg.Redis.Addr != "" {
		rdb, err := redissvc.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache = redissvc.NewSnapshotCache(rdb, cfg.Redis.SnapshotTTL)
		logger.Info("snapshot cache: redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Info("snapshot cache: memory")
	}

	registry := session.NewRegistry(
		func(token string) cart.Remote { return client.WithToken(token) },
		cache,
		session.WithLogger(logger),
		session.WithDebounce(cfg.Debounce),
	)
	handlers.SetSessionRegistry(registry)
	handlers.SetLogger(logger)

	limiter := rl.New(cfg.Session.RateLimit, cfg.Session.Burst)
	go limiter.StartCleanupLoop(ctx, 5*time.Minute)
	go registry.StartIdleSweeper(ctx, time.Minute, cfg.Session.IdleAfter)

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: router.NewRouter(router.Config{
			JWTSecret:      []byte(cfg.Auth.JWTSecret),
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Limiter:        limiter,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := registry.CloseAll(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("flush sessions: %w", err))
	}
	return errors.Join(errs...)
}

func newCheckStockCmd() *cobra.Command {
	var (
		productPath string
		size        string
		quantity    int
	)

	cmd := &cobra.Command{
		Use:   "check-stock",
		Short: "Validate a quantity against a product's stock",
		Long:  "Reads a product as JSON from --product (or stdin when it is \"-\") and prints the stock validation for --size and --quantity.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var product models.Product
			in := cmd.InOrStdin()
			if productPath != "-" {
				f, err := os.Open(productPath)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			if err := json.NewDecoder(in).Decode(&product); err != nil {
				return fmt.Errorf("decode product: %w", err)
			}

			var selected *string
			if cmd.Flags().Changed("size") {
				selected = &size
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stock.ValidateRequestedQuantity(product, selected, quantity))
		},
	}
	cmd.Flags().StringVarP(&productPath, "product", "p", "-", "product JSON file")
	cmd.Flags().StringVarP(&size, "size", "s", "", "selected size")
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "requested quantity")
	return cmd
}
