package provider

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/moduhq/modu/internal/auth/domain"
	"github.com/moduhq/modu/pkg/jwtx"
)

const appleTestClientID = "com.moduhq.modu"

type appleFixture struct {
	key    *rsa.PrivateKey
	kid    string
	apple  *Apple
	server *httptest.Server
}

func newAppleFixture(t *testing.T) *appleFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kid := "apple-key-1"
	jwks := jwtx.JWKS{Keys: []jwtx.JWK{jwtx.NewRSAJWK(kid, "sig", "RS256", &key.PublicKey)}}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(server.Close)

	keys := jwtx.NewRemoteKeySet(server.URL, 0, 0, server.Client())
	return &appleFixture{
		key:    key,
		kid:    kid,
		apple:  NewApple(keys, appleTestClientID),
		server: server,
	}
}

func (f *appleFixture) sign(t *testing.T, claims appleClaims, alg jwt.SigningMethod, kid string) string {
	t.Helper()

	token := jwt.NewWithClaims(alg, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func validAppleClaims(nonce string) appleClaims {
	return appleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://appleid.apple.com",
			Subject:   "001234.abcdef",
			Audience:  jwt.ClaimStrings{appleTestClientID},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Nonce: nonce,
		Email: "apple@example.com",
	}
}

func TestAppleVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts a valid identity token", func(t *testing.T) {
		f := newAppleFixture(t)
		token := f.sign(t, validAppleClaims("nonce-123"), jwt.SigningMethodRS256, f.kid)

		id, err := f.apple.Verify(ctx, Credential{Token: token, Nonce: "nonce-123"})
		require.NoError(t, err)
		require.Equal(t, domain.ProviderApple, id.Provider)
		require.Equal(t, "001234.abcdef", id.ProviderID)
		require.Equal(t, "apple@example.com", id.Email)
	})

	t.Run("rejects nonce mismatch", func(t *testing.T) {
		f := newAppleFixture(t)
		token := f.sign(t, validAppleClaims("nonce-123"), jwt.SigningMethodRS256, f.kid)

		_, err := f.apple.Verify(ctx, Credential{Token: token, Nonce: "other"})
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects missing nonce", func(t *testing.T) {
		f := newAppleFixture(t)
		token := f.sign(t, validAppleClaims(""), jwt.SigningMethodRS256, f.kid)

		_, err := f.apple.Verify(ctx, Credential{Token: token, Nonce: ""})
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects wrong issuer", func(t *testing.T) {
		f := newAppleFixture(t)
		claims := validAppleClaims("nonce-123")
		claims.Issuer = "https://evil.example.com"
		token := f.sign(t, claims, jwt.SigningMethodRS256, f.kid)

		_, err := f.apple.Verify(ctx, Credential{Token: token, Nonce: "nonce-123"})
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects wrong audience", func(t *testing.T) {
		f := newAppleFixture(t)
		claims := validAppleClaims("nonce-123")
		claims.Audience = jwt.ClaimStrings{"com.other.app"}
		token := f.sign(t, claims, jwt.SigningMethodRS256, f.kid)

		_, err := f.apple.Verify(ctx, Credential{Token: token, Nonce: "nonce-123"})
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects token expiring within the margin", func(t *testing.T) {
		f := newAppleFixture(t)
		claims := validAppleClaims("nonce-123")
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(10 * time.Second))
		token := f.sign(t, claims, jwt.SigningMethodRS256, f.kid)

		_, err := f.apple.Verify(ctx, Credential{Token: token, Nonce: "nonce-123"})
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects unknown kid", func(t *testing.T) {
		f := newAppleFixture(t)
		token := f.sign(t, validAppleClaims("nonce-123"), jwt.SigningMethodRS256, "unknown-kid")

		_, err := f.apple.Verify(ctx, Credential{Token: token, Nonce: "nonce-123"})
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects disallowed algorithm", func(t *testing.T) {
		f := newAppleFixture(t)

		// HS256 token signed with an arbitrary shared secret; the alg
		// allow-list must refuse it before any key lookup.
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, validAppleClaims("nonce-123"))
		token.Header["kid"] = f.kid
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = f.apple.Verify(ctx, Credential{Token: signed, Nonce: "nonce-123"})
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unreachable key endpoint is unavailable", func(t *testing.T) {
		f := newAppleFixture(t)
		token := f.sign(t, validAppleClaims("nonce-123"), jwt.SigningMethodRS256, f.kid)

		keys := jwtx.NewRemoteKeySet("http://127.0.0.1:1/keys", 0, 0,
			&http.Client{Timeout: 100 * time.Millisecond})
		apple := NewApple(keys, appleTestClientID)

		_, err := apple.Verify(ctx, Credential{Token: token, Nonce: "nonce-123"})
		require.ErrorIs(t, err, ErrProviderUnavailable)
	})
}
