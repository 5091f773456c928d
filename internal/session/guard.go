package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CookieName is the cookie carrying the signed session token.
	CookieName  = "apk_session"
	tokenIssuer = "bayrex-apk"
)

// Credentials is the one configured administrator identity.
type Credentials struct {
	Username     string
	PasswordHash []byte
	TOTPSecret   string
}

// NewCredentials builds the admin identity from either a bcrypt hash or a
// plain password (hashed here). The hash wins when both are set.
func NewCredentials(username, password, passwordHash, totpSecret string) (Credentials, error) {
	if username == "" {
		return Credentials{}, errors.New("session: admin username is required")
	}
	hash := []byte(passwordHash)
	if len(hash) == 0 {
		if password == "" {
			return Credentials{}, errors.New("session: admin password is required")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return Credentials{}, fmt.Errorf("session: hash admin password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return Credentials{}, fmt.Errorf("session: invalid admin password hash: %w", err)
	}
	return Credentials{Username: username, PasswordHash: hash, TOTPSecret: totpSecret}, nil
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username  string `json:"username" form:"username" validate:"required"`
	Password  string `json:"password" form:"password" validate:"required"`
	TwoFACode string `json:"two_fa_code" form:"two_fa_code"`
}

// Guard checks the admin credential and manages sessions.
type Guard struct {
	creds  Credentials
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewGuard(creds Credentials, store Store, secret string, ttl time.Duration) *Guard {
	return &Guard{
		creds:  creds,
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TOTPEnabled reports whether logins need a second factor.
func (g *Guard) TOTPEnabled() bool {
	return g.creds.TOTPSecret != ""
}

type claims struct {
	jwt.RegisteredClaims
}

// Login verifies the credential and opens a session. The bcrypt comparison
// runs even for an unknown username so both failures take the same time.
func (g *Guard) Login(ctx context.Context, req LoginRequest) (string, *Session, error) {
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(g.creds.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword(g.creds.PasswordHash, []byte(req.Password))
	if !userOK || passErr != nil {
		return "", nil, ErrBadLogin
	}

	if g.TOTPEnabled() {
		code := strings.TrimSpace(req.TwoFACode)
		if code == "" {
			return "", nil, ErrTOTPRequired
		}
		if !totp.Validate(code, g.creds.TOTPSecret) {
			return "", nil, ErrBadLogin
		}
	}

	now := g.now()
	s := &Session{
		ID:        uuid.NewString(),
		AdminID:   AdminID,
		Username:  g.creds.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	}
	if err := g.store.Save(ctx, s); err != nil {
		return "", nil, err
	}

	token, err := g.sign(s)
	if err != nil {
		_ = g.store.Delete(ctx, s.ID)
		return "", nil, err
	}
	return token, s, nil
}

func (g *Guard) sign(s *Session) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.Username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(g.secret)
}

// sessionID returns the session id carried by a valid token.
func (g *Guard) sessionID(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(*jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrUnauthorized
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.ID == "" {
		return "", ErrUnauthorized
	}
	return c.ID, nil
}

// Logout destroys the session named by token. Unknown or invalid tokens are
// not an error.
func (g *Guard) Logout(ctx context.Context, token string) error {
	id, err := g.sessionID(token)
	if err != nil {
		return nil
	}
	return g.store.Delete(ctx, id)
}

// Check returns the live session for token, if any.
func (g *Guard) Check(ctx context.Context, token string) (*Session, bool) {
	s, err := g.Require(ctx, token)
	return s, err == nil
}

// Require is the guard in front of every catalog mutation.
func (g *Guard) Require(ctx context.Context, token string) (*Session, error) {
	id, err := g.sessionID(token)
	if err != nil {
		return nil, err
	}
	s, err := g.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if s.Expired(g.now()) || s.AdminID != AdminID {
		return nil, ErrUnauthorized
	}
	return s, nil
}
