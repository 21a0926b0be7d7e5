package sqlite

import (
	"context"
	"slices"
	"time"

	"github.com/moduhq/modu/internal/auth/domain"
	"github.com/moduhq/modu/internal/auth/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, email, display_name, role, status, provider,
	refresh_token_hash, remember_me, device_tokens, slug, is_verified, image,
	created_at, updated_at`

func (r *accountsRepo) GetByID(ctx context.Context, id string) (domain.UserAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetByEmail(ctx context.Context, email string) (domain.UserAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE email = ?`, email)
	return scanAccount(row)
}

func (r *accountsRepo) GetByEmailWithPassword(ctx context.Context, email string) (domain.UserAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+`, password_hash FROM users WHERE email = ?`, email)

	var (
		u            domain.UserAccount
		deviceTokens string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.Status, &u.Provider,
		&u.RefreshTokenHash, &u.RememberMe, &deviceTokens, &u.Slug,
		&u.IsVerified, &u.Image, &u.CreatedAt, &u.UpdatedAt,
		&u.PasswordHash,
	)
	if err != nil {
		return domain.UserAccount{}, mapNotFound(err)
	}
	u.DeviceTokens = splitTokens(deviceTokens)
	return u, nil
}

func (r *accountsRepo) Create(ctx context.Context, u domain.UserAccount) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, email, password_hash, display_name, role, status, provider,
			refresh_token_hash, remember_me, device_tokens, slug, is_verified,
			image, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.Role, u.Status,
		u.Provider, u.RefreshTokenHash, u.RememberMe,
		joinTokens(u.DeviceTokens), u.Slug, u.IsVerified, u.Image, now, now,
	)
	return mapConstraint(err)
}

func (r *accountsRepo) NextSlug(ctx context.Context) (int, error) {
	// sqlite serializes writers, so MAX+1 inside the signup transaction
	// cannot hand out the same slug twice.
	var next int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(slug), 0) + 1 FROM users`).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
}

func (r *accountsRepo) SetVerified(ctx context.Context, userID string, verified bool) error {
	return r.exec(ctx,
		`UPDATE users SET is_verified = ?, updated_at = ? WHERE id = ?`,
		verified, time.Now().UTC(), userID)
}

func (r *accountsRepo) SetProvider(ctx context.Context, userID string, provider string) error {
	return r.exec(ctx,
		`UPDATE users SET provider = ?, updated_at = ? WHERE id = ?`,
		provider, time.Now().UTC(), userID)
}

func (r *accountsRepo) SetRefreshToken(ctx context.Context, userID string, tokenHash string, rememberMe bool) error {
	return r.exec(ctx,
		`UPDATE users SET refresh_token_hash = ?, remember_me = ?, updated_at = ? WHERE id = ?`,
		tokenHash, rememberMe, time.Now().UTC(), userID)
}

func (r *accountsRepo) AddDeviceToken(ctx context.Context, userID string, token string) error {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if slices.Contains(u.DeviceTokens, token) {
		return nil
	}
	tokens := append(u.DeviceTokens, token)
	return r.exec(ctx,
		`UPDATE users SET device_tokens = ?, updated_at = ? WHERE id = ?`,
		joinTokens(tokens), time.Now().UTC(), userID)
}

// exec runs an account mutation and maps a zero-row update to ErrNotFound.
func (r *accountsRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.UserAccount, error) {
	var (
		u            domain.UserAccount
		deviceTokens string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.Status, &u.Provider,
		&u.RefreshTokenHash, &u.RememberMe, &deviceTokens, &u.Slug,
		&u.IsVerified, &u.Image, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.UserAccount{}, mapNotFound(err)
	}
	u.DeviceTokens = splitTokens(deviceTokens)
	return u, nil
}
