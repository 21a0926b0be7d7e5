package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/moduhq/modu/internal/auth/domain"
	"github.com/moduhq/modu/internal/auth/mail"
	"github.com/moduhq/modu/internal/auth/store"
	"github.com/moduhq/modu/pkg/cryptox"
	"github.com/moduhq/modu/pkg/slogx"
)

const (
	DefaultOtpTTL    = 2 * time.Minute
	DefaultOtpDigits = 4

	otpMailSubject = "modu password recovery code"
)

// PasswordService handles the recovery and change flows around a stored
// password hash.
type PasswordService struct {
	Store  store.Store
	Tokens *TokenService
	Mail   mail.Sender

	OtpTTL    time.Duration
	OtpDigits int

	// Log is the fallback logger for the fire-and-forget mail goroutine,
	// which outlives the request context.
	Log *slog.Logger
}

func (s *PasswordService) otpTTL() time.Duration {
	if s.OtpTTL > 0 {
		return s.OtpTTL
	}
	return DefaultOtpTTL
}

func (s *PasswordService) otpDigits() int {
	if s.OtpDigits > 0 {
		return s.OtpDigits
	}
	return DefaultOtpDigits
}

// Forgot generates a fresh recovery code for the account, stores it with a
// short TTL (replacing any earlier code) and mails it out. Mail delivery is
// fire and forget: a relay hiccup must not roll back the stored code.
func (s *PasswordService) Forgot(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)

	if _, err := s.Store.Accounts().GetByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	code, err := cryptox.GenerateNumericCode(s.otpDigits())
	if err != nil {
		return "", err
	}

	err = s.Store.Otps().Upsert(ctx, domain.Otp{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(s.otpTTL()),
	})
	if err != nil {
		return "", err
	}

	go s.sendOtpMail(email, code)

	return email, nil
}

func (s *PasswordService) sendOtpMail(email, code string) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body := fmt.Sprintf("<p>Your recovery code is <strong>%s</strong>. It expires in %d minutes.</p>",
		code, int(s.otpTTL().Minutes()))
	if err := s.Mail.Send(ctx, email, otpMailSubject, body); err != nil {
		log.Error("recovery mail delivery failed", "err", err)
	}
}

// Reset redeems a recovery code for a new password. A successful reset
// consumes the code, revokes any live refresh token and signs the user in
// with a fresh pair.
func (s *PasswordService) Reset(ctx context.Context, email, code, newPassword string) (domain.UserAccount, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	u, err := s.Store.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UserAccount{}, domain.TokenPair{}, ErrNotFound
		}
		return domain.UserAccount{}, domain.TokenPair{}, err
	}

	otp, err := s.Store.Otps().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UserAccount{}, domain.TokenPair{}, ErrOtpInvalid
		}
		return domain.UserAccount{}, domain.TokenPair{}, err
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(otp.Code)) != 1 {
		return domain.UserAccount{}, domain.TokenPair{}, ErrOtpInvalid
	}
	if otp.Expired(time.Now()) {
		return domain.UserAccount{}, domain.TokenPair{}, ErrOtpExpired
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return domain.UserAccount{}, domain.TokenPair{}, err
	}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInternal
			}
			return err
		}
		if err := tx.Otps().Delete(ctx, email); err != nil {
			return err
		}
		// IssuePair overwrites the stored fingerprint, which revokes
		// whatever session was live before the reset.
		pair, err = s.Tokens.IssuePair(ctx, tx, u, false)
		return err
	})
	if err != nil {
		return domain.UserAccount{}, domain.TokenPair{}, err
	}

	l.Info("password reset completed", slog.String("user_id", u.ID))
	return u, pair, nil
}

// ChangePassword is the authenticated change flow: the current password is
// required, the new password must actually differ, and the account drops
// back to unverified until re-confirmed.
func (s *PasswordService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, confirm string) error {
	if newPassword == "" || newPassword != confirm {
		return ErrPasswordMismatch
	}

	u, err := s.Store.Accounts().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	withHash, err := s.Store.Accounts().GetByEmailWithPassword(ctx, u.Email)
	if err != nil {
		return err
	}
	if withHash.PasswordHash == "" ||
		cryptox.VerifyPassword(currentPassword, withHash.PasswordHash) != nil {
		return ErrInvalidCredentials
	}
	if newPassword == currentPassword {
		return ErrSamePassword
	}

	return s.storeNewPassword(ctx, userID, newPassword)
}

// ChangeUserPassword sets a new password with confirmation only, for
// clients that already proved identity through the OTP flow.
func (s *PasswordService) ChangeUserPassword(ctx context.Context, userID, newPassword, confirm string) error {
	if newPassword == "" || newPassword != confirm {
		return ErrPasswordMismatch
	}

	if _, err := s.Store.Accounts().GetByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	return s.storeNewPassword(ctx, userID, newPassword)
}

func (s *PasswordService) storeNewPassword(ctx context.Context, userID, newPassword string) error {
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().UpdatePasswordHash(ctx, userID, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInternal
			}
			return err
		}
		// Force re-confirmation after any password change.
		if err := tx.Accounts().SetVerified(ctx, userID, false); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInternal
			}
			return err
		}
		return nil
	})
}
