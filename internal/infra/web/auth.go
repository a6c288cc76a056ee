package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"audio-commerce/internal/domain/model"
)

// ===== Session/JWT primitives =====

type AuthConfig struct {
	HMACSecret []byte
	TTL        time.Duration
}

type AuthManager struct{ cfg AuthConfig }

func NewAuthManager(secret string, ttl time.Duration) *AuthManager {
	return &AuthManager{cfg: AuthConfig{
		HMACSecret: []byte(secret),
		TTL:        ttl, // e.g., 30 * time.Minute
	}}
}

type IdentityClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (c *IdentityClaims) UserID() string { return c.Subject }

func (a *AuthManager) Mint(userID string, role model.Role) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TTL)),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.cfg.HMACSecret)
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*IdentityClaims, error) {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
	}
	return nil, errors.New("missing token")
}

func (a *AuthManager) parse(tok string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type claimsCtxKey struct{}

func withClaims(ctx context.Context, c *IdentityClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, c)
}

// ClaimsFrom returns the authenticated identity, nil for anonymous requests.
func ClaimsFrom(ctx context.Context) *IdentityClaims {
	c, _ := ctx.Value(claimsCtxKey{}).(*IdentityClaims)
	return c
}
