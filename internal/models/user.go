package models

import "time"

// Session identifies the shopper a cart belongs to. Token is forwarded to the
// cart service on every request made on the shopper's behalf.
type Session struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
