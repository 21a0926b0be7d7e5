package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moduhq/modu/internal/auth/domain"
	"github.com/moduhq/modu/internal/auth/provider"
	"github.com/moduhq/modu/internal/auth/service"
	"github.com/moduhq/modu/internal/auth/store"
	"github.com/moduhq/modu/internal/auth/store/drivers/sqlite"
	"github.com/moduhq/modu/pkg/cryptox"
	"github.com/moduhq/modu/pkg/idx"
	"github.com/moduhq/modu/pkg/jwtx"
)

const (
	testIssuer   = "modu-auth-test"
	testAudience = "modu-app"
)

var (
	testSigner   jwtx.Signer
	testKeys     *jwtx.KeySet
	testVerifier jwtx.Verifier
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	pemKey, err := cryptox.GenerateRSAKey(2048)
	if err != nil {
		panic(err)
	}
	signer, err := jwtx.NewSignerRS256("test-key", pemKey)
	if err != nil {
		panic(err)
	}
	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		panic(err)
	}

	testSigner = signer
	testKeys = keys
	testVerifier = jwtx.NewVerifierRS256(keys, testIssuer, []string{testAudience})

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// nullMailer drops recovery mail on the floor.
type nullMailer struct{}

func (nullMailer) Send(ctx context.Context, to, subject, body string) error { return nil }

// stubProvider returns a canned identity for social login routes.
type stubProvider struct {
	identity domain.Identity
	err      error
}

func (s *stubProvider) Verify(ctx context.Context, cred provider.Credential) (domain.Identity, error) {
	if s.err != nil {
		return domain.Identity{}, s.err
	}
	return s.identity, nil
}

type routerEnv struct {
	router *Router
	store  *sqlite.Store
	tokens *service.TokenService
	stub   *stubProvider
}

// remoteSeq hands each request a distinct client address so the per-IP
// limiter never couples test cases.
var remoteSeq atomic.Int64

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	s.DB().SetMaxOpenConns(1)
	require.NoError(t, s.ApplyMigrations())

	tokens := &service.TokenService{
		Signer:   testSigner,
		Verifier: testVerifier,
		Store:    s,
		Issuer:   testIssuer,
		Audience: []string{testAudience},
	}

	stub := &stubProvider{}
	registry := provider.NewRegistry()
	for _, name := range []string{domain.ProviderGoogle, domain.ProviderKakao, domain.ProviderNaver, domain.ProviderApple} {
		registry.Register(name, stub)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(testKeys, testVerifier, "test", s, quiet)
	r.AuthService = &service.AuthService{Store: s, Tokens: tokens, Providers: registry}
	r.TokenService = tokens
	r.PasswordService = &service.PasswordService{Store: s, Tokens: tokens, Mail: nullMailer{}}
	r.ApplyRoutes()

	return &routerEnv{router: r, store: s, tokens: tokens, stub: stub}
}

func (e *routerEnv) seedAccount(t *testing.T, email, password, role string) domain.UserAccount {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.UserAccount{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Router Test",
		Role:         role,
		Status:       domain.StatusActive,
		Provider:     domain.ProviderNone,
		IsVerified:   true,
	}
	require.NoError(t, e.store.WithTx(ctx, func(tx store.Tx) error {
		slug, err := tx.Accounts().NextSlug(ctx)
		if err != nil {
			return err
		}
		u.Slug = slug
		return tx.Accounts().Create(ctx, u)
	}))
	return u
}

func (e *routerEnv) do(t *testing.T, method, target, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = fmt.Sprintf("10.0.%d.%d:4567", remoteSeq.Add(1)%250, remoteSeq.Load()/250)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// login runs the password flow and returns the issued pair.
func (e *routerEnv) login(t *testing.T, email, password string) LoginResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[LoginResponse](t, rec)
}

func TestLoginRoute(t *testing.T) {
	env := newRouterEnv(t)
	env.seedAccount(t, "router@example.com", "hunter2!", domain.RoleUser)

	t.Run("issues tokens on valid credentials", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]any{
			"email":    "router@example.com",
			"password": "hunter2!",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		resp := decodeBody[LoginResponse](t, rec)
		assert.Equal(t, "router@example.com", resp.User.Email)
		assert.NotEmpty(t, resp.Tokens.AccessToken)
		assert.NotEmpty(t, resp.Tokens.RefreshToken)
		assert.Equal(t, "Bearer", resp.Tokens.TokenType)
	})

	t.Run("wrong password maps to 401", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]any{
			"email":    "router@example.com",
			"password": "nope",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_credentials", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("unknown account maps to 404", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]any{
			"email":    "ghost@example.com",
			"password": "whatever",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "account_not_found", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("invalid JSON maps to 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{not json"))
		req.RemoteAddr = "10.9.9.9:1234"
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_body", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("missing fields map to 400", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "router@example.com"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", decodeBody[ErrorResponse](t, rec).Error)
	})
}

func TestAdminLoginRoute(t *testing.T) {
	env := newRouterEnv(t)
	env.seedAccount(t, "user@example.com", "hunter2!", domain.RoleUser)
	env.seedAccount(t, "admin@example.com", "hunter2!", domain.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/auth/admin-login", "", map[string]any{
		"email":    "user@example.com",
		"password": "hunter2!",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_admin", decodeBody[ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/auth/admin-login", "", map[string]any{
		"email":    "admin@example.com",
		"password": "hunter2!",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.RoleAdmin, decodeBody[LoginResponse](t, rec).User.Role)
}

func TestSocialLoginRoute(t *testing.T) {
	env := newRouterEnv(t)
	env.stub.identity = domain.Identity{
		Provider:    domain.ProviderKakao,
		ProviderID:  "99887",
		Email:       "social@example.com",
		DisplayName: "소셜",
	}

	t.Run("first contact without terms maps to 400", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/social-login", "", map[string]any{
			"provider": domain.ProviderKakao,
			"token":    "provider-token",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "terms_not_accepted", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("signs up and returns a pair", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/social-login", "", map[string]any{
			"provider":    domain.ProviderKakao,
			"token":       "provider-token",
			"acceptTerms": true,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decodeBody[LoginResponse](t, rec)
		assert.Equal(t, "social@example.com", resp.User.Email)
		assert.Equal(t, domain.ProviderKakao, resp.User.Provider)
		assert.NotEmpty(t, resp.Tokens.RefreshToken)
	})

	t.Run("provider outage maps to 503", func(t *testing.T) {
		env.stub.err = provider.ErrProviderUnavailable
		defer func() { env.stub.err = nil }()

		rec := env.do(t, http.MethodPost, "/auth/social-login", "", map[string]any{
			"provider": domain.ProviderKakao,
			"token":    "provider-token",
		})
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "provider_unavailable", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("apple route forwards the nonce", func(t *testing.T) {
		env.stub.identity = domain.Identity{
			Provider:   domain.ProviderApple,
			ProviderID: "001234.abc",
			Email:      "apple@example.com",
		}
		rec := env.do(t, http.MethodPost, "/auth/apple-login", "", map[string]any{
			"identityToken": "apple-identity-token",
			"nonce":         "client-nonce",
			"acceptTerms":   true,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, domain.ProviderApple, decodeBody[LoginResponse](t, rec).User.Provider)
	})
}

func TestBearerRoutes(t *testing.T) {
	env := newRouterEnv(t)
	env.seedAccount(t, "bearer@example.com", "hunter2!", domain.RoleUser)
	session := env.login(t, "bearer@example.com", "hunter2!")

	t.Run("check-login returns the profile", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auth/check-login", session.Tokens.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "bearer@example.com", decodeBody[ProfileResponse](t, rec).Email)
	})

	t.Run("missing token gets 401 with a challenge", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auth/check-login", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auth/check-login", session.Tokens.RefreshToken, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("register-fcm-token stores the device", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/register-fcm-token", session.Tokens.AccessToken, map[string]any{
			"fcmToken": "device-token-1",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/auth/register-fcm-token", session.Tokens.AccessToken, map[string]any{
			"fcmToken": "",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRefreshAndLogoutRoutes(t *testing.T) {
	env := newRouterEnv(t)
	env.seedAccount(t, "refresh@example.com", "hunter2!", domain.RoleUser)
	session := env.login(t, "refresh@example.com", "hunter2!")

	t.Run("refresh mints a new access token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auth/refresh-access-token?refreshToken="+session.Tokens.RefreshToken, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		resp := decodeBody[TokenResponse](t, rec)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Empty(t, resp.RefreshToken)
	})

	t.Run("missing refresh token maps to 400", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auth/refresh-access-token", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("garbage refresh token maps to 401", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auth/refresh-access-token?refreshToken=garbage", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_token", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("logout revokes the refresh token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auth/logout", session.Tokens.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodGet, "/auth/refresh-access-token?refreshToken="+session.Tokens.RefreshToken, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPasswordRoutes(t *testing.T) {
	env := newRouterEnv(t)
	env.seedAccount(t, "recover@example.com", "oldpass!", domain.RoleUser)

	t.Run("forgot echoes the email", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]any{
			"email": "recover@example.com",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "recover@example.com", decodeBody[forgotPasswordResponse](t, rec).Email)
	})

	t.Run("forgot for unknown account maps to 404", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]any{
			"email": "ghost@example.com",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reset confirm mismatch never reaches the service", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]any{
			"email":           "recover@example.com",
			"otp":             "0000",
			"newPassword":     "newpass!",
			"confirmPassword": "different",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "password_confirmation_mismatch", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("reset with the stored code signs in", func(t *testing.T) {
		require.NoError(t, env.store.Otps().Upsert(context.Background(), domain.Otp{
			Email:     "recover@example.com",
			Code:      "4321",
			ExpiresAt: time.Now().UTC().Add(2 * time.Minute),
		}))

		rec := env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]any{
			"email":           "recover@example.com",
			"otp":             "4321",
			"newPassword":     "newpass!",
			"confirmPassword": "newpass!",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotEmpty(t, decodeBody[LoginResponse](t, rec).Tokens.RefreshToken)

		env.login(t, "recover@example.com", "newpass!")
	})

	t.Run("change-password flows through the bearer identity", func(t *testing.T) {
		session := env.login(t, "recover@example.com", "newpass!")

		rec := env.do(t, http.MethodPost, "/auth/change-password", session.Tokens.AccessToken, map[string]any{
			"currentPassword": "newpass!",
			"newPassword":     "finalpass!",
			"confirmPassword": "finalpass!",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		env.login(t, "recover@example.com", "finalpass!")
	})

	t.Run("change-user-password needs no current password", func(t *testing.T) {
		session := env.login(t, "recover@example.com", "finalpass!")

		rec := env.do(t, http.MethodPost, "/auth/change-user-password", session.Tokens.AccessToken, map[string]any{
			"newPassword":     "lastpass!",
			"confirmPassword": "lastpass!",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func TestSystemRoutes(t *testing.T) {
	env := newRouterEnv(t)

	t.Run("livez", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/livez", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", decodeBody[HealthResponse](t, rec).Status)
	})

	t.Run("readyz reports dependency state", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/readyz", "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decodeBody[HealthResponse](t, rec)
		require.NotNil(t, resp.Checks)
		assert.Equal(t, "ok", resp.Checks.Database)
		assert.Equal(t, "ok", resp.Checks.Signer)
	})

	t.Run("jwks exposes the signing key", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/.well-known/jwks.json", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		jwks := decodeBody[jwtx.JWKS](t, rec)
		require.Len(t, jwks.Keys, 1)
		assert.Equal(t, "test-key", jwks.Keys[0].Kid)
	})
}
