package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenUse tags what a signed token may be exchanged for. Access and refresh
// tokens share a signer, so the use claim keeps one from standing in for the
// other.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// Claims are the claims carried by every token this service signs. The
// custom fields mirror the account profile so resource services can render
// the principal without a user lookup.
type Claims struct {
	jwt.RegisteredClaims

	// Use is "access" or "refresh".
	Use string `json:"use,omitempty"`

	// Name is the account display name.
	Name string `json:"name,omitempty"`

	// Email is the case-normalized account email.
	Email string `json:"email,omitempty"`

	// Role is "user" or "admin".
	Role string `json:"role,omitempty"`

	// Active reports whether the account status was active at issue time.
	Active bool `json:"active,omitempty"`

	// Image is an optional avatar URL.
	Image string `json:"image,omitempty"`
}

// NewAccessClaims builds minimally-correct access-token claims.
func NewAccessClaims(
	subject, name, email, role, image string,
	active bool,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: registered(subject, issuer, audience, ttl, now),
		Use:              TokenUseAccess,
		Name:             name,
		Email:            email,
		Role:             role,
		Active:           active,
		Image:            image,
	}
}

// NewRefreshClaims builds refresh-token claims. Refresh tokens carry only the
// subject; the profile is re-read from the store when a new access token is
// minted.
func NewRefreshClaims(
	subject string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: registered(subject, issuer, audience, ttl, now),
		Use:              TokenUseRefresh,
	}
}

func registered(subject, issuer string, audience []string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings(audience),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
