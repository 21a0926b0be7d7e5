package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/moduhq/modu/internal/auth/domain"
	"github.com/moduhq/modu/internal/auth/store"
	"github.com/moduhq/modu/pkg/cryptox"
	"github.com/moduhq/modu/pkg/jwtx"
	"github.com/moduhq/modu/pkg/slogx"
)

const (
	DefaultAccessTTL     = 30 * time.Minute
	DefaultRefreshTTL    = 7 * 24 * time.Hour
	DefaultRememberMeTTL = 90 * 24 * time.Hour
)

// TokenService mints and verifies the session tokens. Both token kinds are
// RS256 JWTs; the refresh token is additionally pinned to the account by a
// stored fingerprint, so only the most recently issued one redeems.
type TokenService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Store    store.Store
	Issuer   string
	Audience []string

	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RememberMeTTL time.Duration
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return DefaultAccessTTL
}

func (s *TokenService) refreshTTL(rememberMe bool) time.Duration {
	if rememberMe {
		if s.RememberMeTTL > 0 {
			return s.RememberMeTTL
		}
		return DefaultRememberMeTTL
	}
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return DefaultRefreshTTL
}

// IssuePair mints an access and refresh token for the account and registers
// the refresh token fingerprint on the account row, rotating out whatever
// token was live before. Pass the transaction when the mint must be atomic
// with other writes (social signup), otherwise pass the root store.
func (s *TokenService) IssuePair(ctx context.Context, st store.Store, u domain.UserAccount, rememberMe bool) (domain.TokenPair, error) {
	now := time.Now()

	access, err := s.Signer.Sign(jwtx.NewAccessClaims(
		u.ID, u.DisplayName, u.Email, u.Role, u.Image, u.IsActive(),
		s.accessTTL(), s.Issuer, s.Audience, now,
	))
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := s.Signer.Sign(jwtx.NewRefreshClaims(
		u.ID, s.refreshTTL(rememberMe), s.Issuer, s.Audience, now,
	))
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := st.Accounts().SetRefreshToken(ctx, u.ID, cryptox.FingerprintToken(refresh), rememberMe); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The row existed moments ago; treat its disappearance as
			// an integrity failure rather than a user-facing 404.
			return domain.TokenPair{}, ErrInternal
		}
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTL() / time.Second,
	}, nil
}

// Refresh redeems a refresh token for a new access token. The refresh token
// itself is not rotated here. Possession of a validly signed token is not
// enough: it must also match the single fingerprint stored on the account.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Verifier.Verify(refreshToken)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return domain.TokenPair{}, ErrTokenExpired
		}
		return domain.TokenPair{}, ErrInvalidToken
	}
	if claims.Use != jwtx.TokenUseRefresh {
		return domain.TokenPair{}, ErrInvalidToken
	}

	u, err := s.Store.Accounts().GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrNotFound
		}
		return domain.TokenPair{}, err
	}

	fp := cryptox.FingerprintToken(refreshToken)
	if u.RefreshTokenHash == "" ||
		subtle.ConstantTimeCompare([]byte(fp), []byte(u.RefreshTokenHash)) != 1 {
		l.Info("refresh token does not match registered session", slog.String("user_id", u.ID))
		return domain.TokenPair{}, ErrInvalidToken
	}

	if err := statusGate(u); err != nil {
		return domain.TokenPair{}, err
	}

	access, err := s.Signer.Sign(jwtx.NewAccessClaims(
		u.ID, u.DisplayName, u.Email, u.Role, u.Image, u.IsActive(),
		s.accessTTL(), s.Issuer, s.Audience, time.Now(),
	))
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   s.accessTTL() / time.Second,
	}, nil
}

// Logout clears the registered refresh token. Idempotent: logging out an
// already-logged-out session is a no-op.
func (s *TokenService) Logout(ctx context.Context, userID string) error {
	err := s.Store.Accounts().SetRefreshToken(ctx, userID, "", false)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// statusGate maps an account status to the gate error every authenticated
// flow shares. Unknown statuses fail closed.
func statusGate(u domain.UserAccount) error {
	switch u.Status {
	case domain.StatusActive:
		return nil
	case domain.StatusBlocked:
		return ErrAccountBlocked
	case domain.StatusInactive:
		return ErrAccountInactive
	default:
		return ErrAccountRestricted
	}
}
