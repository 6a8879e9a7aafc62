package handlers

import (
	"github.com/rogerio-castellano/cart-sync/internal/session"
	"go.uber.org/zap"
)

var (
	sessions *session.Registry
	logger   = zap.NewNop()
)

func SetSessionRegistry(r *session.Registry) {
	sessions = r
}

func SetLogger(l *zap.Logger) {
	logger = l
}
