package http

import (
	"errors"
	"net/http"

	"github.com/moduhq/modu/internal/auth/service"
	"github.com/moduhq/modu/pkg/httpx"
	"github.com/moduhq/modu/pkg/slogx"
)

// ErrorResponse is the JSON error envelope every failure returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// apiError pairs a stable machine code with an HTTP status and a human
// message. The same logical error always produces the same status and
// message, whichever flow raised it.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e apiError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.Status, ErrorResponse{Error: e.Code, Message: e.Message})
}

var (
	errBadRequest = apiError{http.StatusBadRequest, "bad_request", "The request is malformed or missing required fields."}
	errBadJSON    = apiError{http.StatusBadRequest, "invalid_body", "The request body is not valid JSON."}

	errNotFound           = apiError{http.StatusNotFound, "account_not_found", "No account exists for the given identifier."}
	errInvalidCredentials = apiError{http.StatusUnauthorized, "invalid_credentials", "The email or password is incorrect."}
	errNotAdmin           = apiError{http.StatusForbidden, "not_admin", "This account has no administrator access."}

	errAccountBlocked    = apiError{http.StatusForbidden, "account_blocked", "This account has been blocked."}
	errAccountInactive   = apiError{http.StatusForbidden, "account_inactive", "This account is inactive."}
	errAccountRestricted = apiError{http.StatusForbidden, "account_restricted", "This account is currently restricted."}

	errTermsNotAccepted = apiError{http.StatusBadRequest, "terms_not_accepted", "Signing up requires accepting the terms of service."}
	errEmailMismatch    = apiError{http.StatusBadRequest, "email_mismatch", "The given email does not match the verified identity."}
	errConflict         = apiError{http.StatusConflict, "email_already_registered", "An account with this email already exists."}

	errInvalidToken = apiError{http.StatusUnauthorized, "invalid_token", "The token could not be verified."}
	errTokenExpired = apiError{http.StatusUnauthorized, "token_expired", "The token has expired; sign in again."}

	errPasswordMismatch = apiError{http.StatusBadRequest, "password_confirmation_mismatch", "The password confirmation does not match."}
	errSamePassword     = apiError{http.StatusBadRequest, "password_unchanged", "The new password must differ from the current one."}

	errOtpInvalid = apiError{http.StatusBadRequest, "otp_invalid", "The recovery code is incorrect."}
	errOtpExpired = apiError{http.StatusBadRequest, "otp_expired", "The recovery code has expired; request a new one."}

	errProviderUnavailable = apiError{http.StatusServiceUnavailable, "provider_unavailable", "The identity provider could not be reached; try again."}
	errInternal            = apiError{http.StatusInternalServerError, "internal_error", "Something went wrong on our side."}
)

// writeServiceError maps an error from the service layer onto the wire.
// Unclassified errors are logged with their cause and surface as a generic
// 500; internals never reach the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		errNotFound.WriteError(w)
	case errors.Is(err, service.ErrBadRequest):
		errBadRequest.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		errInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrNotAdmin):
		errNotAdmin.WriteError(w)
	case errors.Is(err, service.ErrAccountBlocked):
		errAccountBlocked.WriteError(w)
	case errors.Is(err, service.ErrAccountInactive):
		errAccountInactive.WriteError(w)
	case errors.Is(err, service.ErrAccountRestricted):
		errAccountRestricted.WriteError(w)
	case errors.Is(err, service.ErrTermsNotAccepted):
		errTermsNotAccepted.WriteError(w)
	case errors.Is(err, service.ErrEmailMismatch):
		errEmailMismatch.WriteError(w)
	case errors.Is(err, service.ErrConflict):
		errConflict.WriteError(w)
	case errors.Is(err, service.ErrInvalidToken):
		errInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrTokenExpired):
		errTokenExpired.WriteError(w)
	case errors.Is(err, service.ErrPasswordMismatch):
		errPasswordMismatch.WriteError(w)
	case errors.Is(err, service.ErrSamePassword):
		errSamePassword.WriteError(w)
	case errors.Is(err, service.ErrOtpInvalid):
		errOtpInvalid.WriteError(w)
	case errors.Is(err, service.ErrOtpExpired):
		errOtpExpired.WriteError(w)
	case errors.Is(err, service.ErrProviderUnavailable):
		errProviderUnavailable.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("unclassified auth error", "err", err)
		errInternal.WriteError(w)
	}
}
