// Package provider verifies third-party credentials and normalizes them
// into a domain.Identity. One Verifier per social provider; the Registry
// dispatches on the provider name.
package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/moduhq/modu/internal/auth/domain"
)

var (
	// ErrProviderRejected means the provider answered and said no
	// (non-2xx, malformed body, unknown token).
	ErrProviderRejected = errors.New("provider: credential rejected")

	// ErrProviderUnavailable means we never got a usable answer
	// (network error, timeout). The caller may retry.
	ErrProviderUnavailable = errors.New("provider: unavailable")

	// ErrInvalidToken means a signed token failed local verification
	// (signature, issuer, audience, nonce, expiry margin).
	ErrInvalidToken = errors.New("provider: invalid token")

	// ErrEmailUnverified means the provider vouches for the subject but
	// not for the email address.
	ErrEmailUnverified = errors.New("provider: email not verified")

	// ErrUnknownProvider means no Verifier is registered for the name.
	ErrUnknownProvider = errors.New("provider: unknown provider")
)

// Credential is what the client hands us for one social login attempt.
type Credential struct {
	// Token is the provider access token (Google/Kakao/Naver) or the
	// signed identity token (Apple).
	Token string

	// Nonce is the caller-chosen value that must reappear inside a
	// signed identity token. Apple only.
	Nonce string
}

// Verifier validates a credential against one provider and returns the
// identity the provider vouches for.
type Verifier interface {
	Verify(ctx context.Context, cred Credential) (domain.Identity, error)
}

// Registry holds the configured verifiers keyed by provider name.
type Registry struct {
	verifiers map[string]Verifier
}

func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[string]Verifier)}
}

func (r *Registry) Register(name string, v Verifier) {
	r.verifiers[name] = v
}

func (r *Registry) Verify(ctx context.Context, name string, cred Credential) (domain.Identity, error) {
	v, ok := r.verifiers[name]
	if !ok {
		return domain.Identity{}, ErrUnknownProvider
	}
	return v.Verify(ctx, cred)
}

// defaultHTTPClient bounds every userinfo call. Provider verification must
// never hold a request open indefinitely.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
