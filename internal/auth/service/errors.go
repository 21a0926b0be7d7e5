package service

import "errors"

// Sentinel errors for the auth flows. Handlers match these with errors.Is
// to pick the HTTP status; anything else is treated as internal and logged
// server side.
var (
	ErrNotFound           = errors.New("account_not_found")
	ErrBadRequest         = errors.New("bad_request")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrNotAdmin           = errors.New("not_admin")

	ErrAccountBlocked    = errors.New("account_blocked")
	ErrAccountInactive   = errors.New("account_inactive")
	ErrAccountRestricted = errors.New("account_restricted")

	ErrTermsNotAccepted = errors.New("terms_not_accepted")
	ErrEmailMismatch    = errors.New("email_mismatch")
	ErrConflict         = errors.New("email_already_registered")

	ErrInvalidToken = errors.New("invalid_token")
	ErrTokenExpired = errors.New("token_expired")

	ErrPasswordMismatch = errors.New("password_confirmation_mismatch")
	ErrSamePassword     = errors.New("password_unchanged")

	ErrOtpInvalid = errors.New("otp_invalid")
	ErrOtpExpired = errors.New("otp_expired")

	ErrProviderUnavailable = errors.New("provider_unavailable")

	// ErrInternal covers data-integrity surprises such as zero rows
	// affected on a write that must hit exactly one row.
	ErrInternal = errors.New("internal_error")
)
