package store

import (
	"context"
	"errors"

	"github.com/moduhq/modu/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. Sub-repositories are exposed as methods so that
// transaction scoping stays explicit and nested transactions are impossible
// to write by accident.
type Store interface {
	Accounts() Accounts
	Otps() Otps

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Prefer this
	// over Tx for multi-step operations such as social signup.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetByID returns an account by id. The password hash is never included.
	GetByID(ctx context.Context, id string) (domain.UserAccount, error)

	// GetByEmail returns an account by email without the password hash.
	GetByEmail(ctx context.Context, email string) (domain.UserAccount, error)

	// GetByEmailWithPassword is used by the login flows; it is the only
	// read that surfaces the argon2 hash.
	GetByEmailWithPassword(ctx context.Context, email string) (domain.UserAccount, error)

	// Create inserts a new account (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, u domain.UserAccount) error

	// NextSlug returns the next sequential public slug. Call inside the
	// same transaction that creates the account.
	NextSlug(ctx context.Context) (int, error)

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetVerified flips the is_verified flag.
	SetVerified(ctx context.Context, userID string, verified bool) error

	// SetProvider records the social provider backfilled onto an account.
	SetProvider(ctx context.Context, userID string, provider string) error

	// SetRefreshToken stores the fingerprint of the single active refresh
	// token together with the remember-me preference. An empty hash clears
	// the session.
	SetRefreshToken(ctx context.Context, userID string, tokenHash string, rememberMe bool) error

	// AddDeviceToken appends an FCM registration token, deduplicating.
	AddDeviceToken(ctx context.Context, userID string, token string) error
}

type Otps interface {
	// Upsert stores a recovery code for an email, replacing any previous one.
	Upsert(ctx context.Context, o domain.Otp) error

	// GetByEmail returns the current recovery code for an email.
	GetByEmail(ctx context.Context, email string) (domain.Otp, error)

	// Delete removes the recovery code for an email. No error if absent.
	// This is the only removal path; expired rows stay until replaced or
	// redeemed so a late reset attempt can still see that its code expired.
	Delete(ctx context.Context, email string) error
}
