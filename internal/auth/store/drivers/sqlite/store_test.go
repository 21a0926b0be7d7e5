package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/moduhq/modu/internal/auth/domain"
	"github.com/moduhq/modu/internal/auth/store"
	"github.com/moduhq/modu/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// A :memory: database exists per connection; the pool must not open
	// a second one.
	s.DB().SetMaxOpenConns(1)

	require.NoError(t, s.ApplyMigrations())
	return s
}

func testAccount(email string, slug int) domain.UserAccount {
	return domain.UserAccount{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: "argon2:dummy",
		DisplayName:  "Test User",
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		Provider:     domain.ProviderNone,
		Slug:         slug,
		IsVerified:   true,
	}
}

func TestAccountsCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acct := testAccount("alice@example.com", 1)
	require.NoError(t, s.Accounts().Create(ctx, acct))

	got, err := s.Accounts().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, acct.ID, got.ID)
	require.Equal(t, acct.Email, got.Email)
	require.Equal(t, acct.Slug, got.Slug)
	require.Empty(t, got.PasswordHash, "plain reads must not expose the hash")

	withHash, err := s.Accounts().GetByEmailWithPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "argon2:dummy", withHash.PasswordHash)

	byID, err := s.Accounts().GetByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, acct.Email, byID.Email)
}

func TestAccountsDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Accounts().Create(ctx, testAccount("dup@example.com", 1)))

	err := s.Accounts().Create(ctx, testAccount("dup@example.com", 2))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestAccountsNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Accounts().GetByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.Accounts().UpdatePasswordHash(ctx, "no-such-id", "hash")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAccountsNextSlugSequence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		err := s.WithTx(ctx, func(tx store.Tx) error {
			slug, err := tx.Accounts().NextSlug(ctx)
			require.NoError(t, err)
			require.Equal(t, want, slug)

			return tx.Accounts().Create(ctx, testAccount(
				idx.New().String()+"@example.com", slug))
		})
		require.NoError(t, err)
	}
}

func TestAccountsRefreshTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acct := testAccount("bob@example.com", 1)
	require.NoError(t, s.Accounts().Create(ctx, acct))

	require.NoError(t, s.Accounts().SetRefreshToken(ctx, acct.ID, "fingerprint-1", true))

	got, err := s.Accounts().GetByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, "fingerprint-1", got.RefreshTokenHash)
	require.True(t, got.RememberMe)

	// Clearing the session
	require.NoError(t, s.Accounts().SetRefreshToken(ctx, acct.ID, "", false))

	got, err = s.Accounts().GetByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Empty(t, got.RefreshTokenHash)
	require.False(t, got.RememberMe)
}

func TestAccountsDeviceTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acct := testAccount("carol@example.com", 1)
	require.NoError(t, s.Accounts().Create(ctx, acct))

	require.NoError(t, s.Accounts().AddDeviceToken(ctx, acct.ID, "fcm-token-a"))
	require.NoError(t, s.Accounts().AddDeviceToken(ctx, acct.ID, "fcm-token-b"))
	require.NoError(t, s.Accounts().AddDeviceToken(ctx, acct.ID, "fcm-token-a")) // duplicate

	got, err := s.Accounts().GetByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"fcm-token-a", "fcm-token-b"}, got.DeviceTokens)
}

func TestAccountsProviderAndVerified(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acct := testAccount("dave@example.com", 1)
	require.NoError(t, s.Accounts().Create(ctx, acct))

	require.NoError(t, s.Accounts().SetProvider(ctx, acct.ID, domain.ProviderKakao))
	require.NoError(t, s.Accounts().SetVerified(ctx, acct.ID, false))

	got, err := s.Accounts().GetByID(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ProviderKakao, got.Provider)
	require.False(t, got.IsVerified)
}

func TestOtpsUpsertReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := domain.Otp{
		Email:     "reset@example.com",
		Code:      "111111",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, s.Otps().Upsert(ctx, first))

	second := first
	second.Code = "222222"
	require.NoError(t, s.Otps().Upsert(ctx, second))

	got, err := s.Otps().GetByEmail(ctx, "reset@example.com")
	require.NoError(t, err)
	require.Equal(t, "222222", got.Code)
}

func TestOtpsDeleteRemovesTheRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fresh := domain.Otp{
		Email:     "fresh@example.com",
		Code:      "444444",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, s.Otps().Upsert(ctx, fresh))

	require.NoError(t, s.Otps().Delete(ctx, "fresh@example.com"))
	_, err := s.Otps().GetByEmail(ctx, "fresh@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Deleting an absent row is a no-op.
	require.NoError(t, s.Otps().Delete(ctx, "fresh@example.com"))
}

func TestOtpsExpiredRowsStayReadable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stale := domain.Otp{
		Email:     "stale@example.com",
		Code:      "333333",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, s.Otps().Upsert(ctx, stale))

	// Expiry is enforced at redemption time, not by deletion; the row must
	// survive so a late reset attempt can tell "expired" from "never issued".
	got, err := s.Otps().GetByEmail(ctx, "stale@example.com")
	require.NoError(t, err)
	require.True(t, got.Expired(time.Now().UTC()))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sentinel := store.ErrAlreadyExists
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().Create(ctx, testAccount("tx@example.com", 1)); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = s.Accounts().GetByEmail(ctx, "tx@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}
