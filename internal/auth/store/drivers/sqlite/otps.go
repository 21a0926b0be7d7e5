package sqlite

import (
	"context"
	"time"

	"github.com/moduhq/modu/internal/auth/domain"
)

type otpsRepo struct {
	db dbtx
}

func (r *otpsRepo) Upsert(ctx context.Context, o domain.Otp) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otps (email, code, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			code = excluded.code,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		o.Email, o.Code, o.ExpiresAt.UTC(), time.Now().UTC(),
	)
	return err
}

func (r *otpsRepo) GetByEmail(ctx context.Context, email string) (domain.Otp, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT email, code, expires_at, created_at FROM otps WHERE email = ?`, email)

	var o domain.Otp
	if err := row.Scan(&o.Email, &o.Code, &o.ExpiresAt, &o.CreatedAt); err != nil {
		return domain.Otp{}, mapNotFound(err)
	}
	return o, nil
}

func (r *otpsRepo) Delete(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE email = ?`, email)
	return err
}
