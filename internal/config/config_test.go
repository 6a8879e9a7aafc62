package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CARTSYNC_CART_SERVICE_BASE_URL", "http://carts.internal")
	t.Setenv("CARTSYNC_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("CARTSYNC_DEBOUNCE", "250ms")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://carts.internal", cfg.CartService.BaseURL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.CartService.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartsync.yaml")
	content := `
listen_addr: ":9090"
cart_service:
  base_url: http://from-file
  timeout: 3s
auth:
  jwt_secret: file-secret
redis:
  addr: localhost:6379
cors:
  allowed_origins:
    - https://shop.example.com
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("CARTSYNC_LISTEN_ADDR", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, "http://from-file", cfg.CartService.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.CartService.Timeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart_service.base_url")
	assert.Contains(t, err.Error(), "auth.jwt_secret")
}
