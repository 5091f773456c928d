// Package session implements the single-admin session guard.
//
// A session lives server-side in a Store. The client only ever holds a signed
// token naming the session id, so logging out (deleting the session) revokes
// the token immediately even though its signature is still valid.
package session

import (
	"context"
	"errors"
	"time"
)

// AdminID marks a session as belonging to the administrator.
const AdminID uint = 1

var (
	ErrUnauthorized = errors.New("admin authorization required")
	ErrBadLogin     = errors.New("invalid username or password")
	ErrTOTPRequired = errors.New("2FA code required")
	ErrNotFound     = errors.New("session not found")
)

// Session is the server-held proof of an admin login.
type Session struct {
	ID        string    `json:"id"`
	AdminID   uint      `json:"admin_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at t.
func (s *Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// Store keeps sessions keyed by id.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
