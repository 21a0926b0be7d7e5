package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/moduhq/modu/internal/auth/domain"
	"github.com/moduhq/modu/internal/auth/provider"
	"github.com/moduhq/modu/internal/auth/store"
	"github.com/moduhq/modu/pkg/cryptox"
	"github.com/moduhq/modu/pkg/idx"
	"github.com/moduhq/modu/pkg/slogx"
)

// AuthService coordinates the login flows: credential verification, the
// account status gate, and token issuance.
type AuthService struct {
	Store     store.Store
	Tokens    *TokenService
	Providers *provider.Registry
}

// Login authenticates a password account and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool) (domain.UserAccount, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	u, err := s.Store.Accounts().GetByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UserAccount{}, domain.TokenPair{}, ErrNotFound
		}
		return domain.UserAccount{}, domain.TokenPair{}, err
	}

	if u.PasswordHash == "" {
		// Social-only account; there is no password to check against.
		return domain.UserAccount{}, domain.TokenPair{}, ErrInvalidCredentials
	}
	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		l.Info("password login failed", slog.String("user_id", u.ID))
		return domain.UserAccount{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	if err := statusGate(u); err != nil {
		return domain.UserAccount{}, domain.TokenPair{}, err
	}

	pair, err := s.Tokens.IssuePair(ctx, s.Store, u, rememberMe)
	if err != nil {
		return domain.UserAccount{}, domain.TokenPair{}, err
	}

	u.PasswordHash = ""
	return u, pair, nil
}

// AdminLogin is Login with a role gate on top.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string, rememberMe bool) (domain.UserAccount, domain.TokenPair, error) {
	email = normalizeEmail(email)

	u, err := s.Store.Accounts().GetByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UserAccount{}, domain.TokenPair{}, ErrNotFound
		}
		return domain.UserAccount{}, domain.TokenPair{}, err
	}

	// Role gate before the password check: a non-admin probing this
	// endpoint learns nothing about their own credentials.
	if u.Role != domain.RoleAdmin {
		return domain.UserAccount{}, domain.TokenPair{}, ErrNotAdmin
	}

	return s.Login(ctx, email, password, rememberMe)
}

// SocialLoginInput is one social or Apple login attempt as the client
// asserts it. Email and DisplayName are client-asserted and cross-checked
// against what the provider vouches for.
type SocialLoginInput struct {
	Provider    string
	Token       string
	Nonce       string // Apple only
	Email       string
	DisplayName string
	Image       string
	AcceptTerms bool
	RememberMe  bool
}

// SocialLogin verifies a provider credential and either signs the account in
// or, on first contact, creates it. Signup assigns the slug, stores the
// account and registers the initial refresh token inside one transaction.
func (s *AuthService) SocialLogin(ctx context.Context, in SocialLoginInput) (domain.UserAccount, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	if !domain.ValidProvider(in.Provider) || in.Token == "" {
		return domain.UserAccount{}, domain.TokenPair{}, ErrBadRequest
	}

	identity, err := s.Providers.Verify(ctx, in.Provider, provider.Credential{
		Token: in.Token,
		Nonce: in.Nonce,
	})
	if err != nil {
		return domain.UserAccount{}, domain.TokenPair{}, mapProviderError(err)
	}

	// A forged client-side email must not bypass provider verification.
	if in.Email != "" && !strings.EqualFold(in.Email, identity.Email) {
		l.Info("social login email mismatch",
			slog.String("provider", in.Provider),
			slog.String("asserted", in.Email),
		)
		return domain.UserAccount{}, domain.TokenPair{}, ErrEmailMismatch
	}

	email := normalizeEmail(identity.Email)

	u, err := s.Store.Accounts().GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.socialSignIn(ctx, u, in)
	case errors.Is(err, store.ErrNotFound):
		return s.socialSignUp(ctx, identity, in, email)
	default:
		return domain.UserAccount{}, domain.TokenPair{}, err
	}
}

func (s *AuthService) socialSignIn(ctx context.Context, u domain.UserAccount, in SocialLoginInput) (domain.UserAccount, domain.TokenPair, error) {
	if err := statusGate(u); err != nil {
		return domain.UserAccount{}, domain.TokenPair{}, err
	}

	// Backfill the provider on accounts that predate social login.
	if u.Provider == domain.ProviderNone || u.Provider == "" {
		if err := s.Store.Accounts().SetProvider(ctx, u.ID, in.Provider); err != nil {
			return domain.UserAccount{}, domain.TokenPair{}, err
		}
		u.Provider = in.Provider
	}

	pair, err := s.Tokens.IssuePair(ctx, s.Store, u, in.RememberMe)
	if err != nil {
		return domain.UserAccount{}, domain.TokenPair{}, err
	}
	return u, pair, nil
}

func (s *AuthService) socialSignUp(ctx context.Context, identity domain.Identity, in SocialLoginInput, email string) (domain.UserAccount, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	if !in.AcceptTerms {
		return domain.UserAccount{}, domain.TokenPair{}, ErrTermsNotAccepted
	}

	displayName := identity.DisplayName
	if displayName == "" {
		displayName = in.DisplayName
	}
	image := identity.Image
	if image == "" {
		image = in.Image
	}

	u := domain.UserAccount{
		ID:          idx.New().String(),
		Email:       email,
		DisplayName: displayName,
		Role:        domain.RoleUser,
		Status:      domain.StatusActive,
		Provider:    in.Provider,
		IsVerified:  true,
		Image:       image,
	}

	var pair domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		slug, err := tx.Accounts().NextSlug(ctx)
		if err != nil {
			return err
		}
		u.Slug = slug

		if err := tx.Accounts().Create(ctx, u); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrConflict
			}
			return err
		}

		pair, err = s.Tokens.IssuePair(ctx, tx, u, in.RememberMe)
		return err
	})
	if err != nil {
		return domain.UserAccount{}, domain.TokenPair{}, err
	}

	l.Info("social account created",
		slog.String("user_id", u.ID),
		slog.String("provider", in.Provider),
		slog.Int("slug", u.Slug),
	)
	return u, pair, nil
}

// CheckLogin returns the current principal's profile.
func (s *AuthService) CheckLogin(ctx context.Context, userID string) (domain.UserAccount, error) {
	u, err := s.Store.Accounts().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UserAccount{}, ErrNotFound
		}
		return domain.UserAccount{}, err
	}
	return u, nil
}

// RegisterDeviceToken records an FCM push registration token on the account.
func (s *AuthService) RegisterDeviceToken(ctx context.Context, userID, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrBadRequest
	}
	err := s.Store.Accounts().AddDeviceToken(ctx, userID, token)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// mapProviderError folds the provider package's error kinds into the
// service taxonomy.
func mapProviderError(err error) error {
	switch {
	case errors.Is(err, provider.ErrProviderUnavailable):
		return ErrProviderUnavailable
	case errors.Is(err, provider.ErrUnknownProvider):
		return ErrBadRequest
	default:
		// Rejected, unverified email, bad signature, nonce mismatch:
		// the credential does not authenticate anyone.
		return ErrInvalidToken
	}
}
