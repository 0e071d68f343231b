package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nidhal-dev/authfront/internal/session"
)

// ErrNoRoleClaim is returned when the access token carries no usable role
var ErrNoRoleClaim = errors.New("access token has no role claim")

// AccessClaims represents the claims the API puts in an access token
type AccessClaims struct {
	Role    string `json:"role"`
	Enabled bool   `json:"enabled"`
	jwt.RegisteredClaims
}

// ParseAccessToken decodes the claims of an access token without verifying
// its signature. The client never holds the signing key; the API verifies
// the token on every request, so the claims are only used for display and
// to seed the session role.
func ParseAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// RoleFromAccessToken returns the session role carried by an access token
func RoleFromAccessToken(tokenString string) (session.Role, error) {
	claims, err := ParseAccessToken(tokenString)
	if err != nil {
		return session.RoleNone, err
	}
	if claims.Role == "" {
		return session.RoleNone, ErrNoRoleClaim
	}
	return session.ParseRole(claims.Role)
}

// ExpiresIn returns how long until the token expires, or false if it has no
// expiry claim.
func (c *AccessClaims) ExpiresIn(now time.Time) (time.Duration, bool) {
	if c.ExpiresAt == nil {
		return 0, false
	}
	return c.ExpiresAt.Sub(now), true
}
