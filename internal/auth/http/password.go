package http

import (
	"net/http"
	"strings"

	"github.com/moduhq/modu/internal/auth/service"
	"github.com/moduhq/modu/pkg/httpx"
)

// PasswordHandler serves password recovery and change endpoints.
type PasswordHandler struct {
	Password *service.PasswordService
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type forgotPasswordResponse struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email           string `json:"email"`
	Otp             string `json:"otp"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type changeUserPasswordRequest struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// HandleForgotPassword godoc
//
//	@Summary		Start password recovery
//	@Description	Generates a short-lived one-time code for a registered account and mails it
//	@Description	to the account's address.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			body	body		forgotPasswordRequest	true	"account email"
//	@Success		200		{object}	forgotPasswordResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/auth/forgot-password [post].
func (h *PasswordHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		errBadJSON.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		errBadRequest.WriteError(w)
		return
	}

	email, err := h.Password.Forgot(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, forgotPasswordResponse{Email: email})
}

// HandleResetPassword godoc
//
//	@Summary		Reset a forgotten password
//	@Description	Redeems the mailed one-time code, replaces the password and signs the
//	@Description	account in with a fresh token pair. Any previous session is revoked.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			body	body		resetPasswordRequest	true	"email, code and new password"
//	@Success		200		{object}	LoginResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/auth/reset-password [post].
func (h *PasswordHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		errBadJSON.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Otp == "" || req.NewPassword == "" {
		errBadRequest.WriteError(w)
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		errPasswordMismatch.WriteError(w)
		return
	}

	u, pair, err := h.Password.Reset(r.Context(), req.Email, req.Otp, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newLoginResponse(u, pair))
}

// HandleChangePassword godoc
//
//	@Summary		Change password
//	@Description	Replaces the authenticated account's password after checking the current one.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body	changePasswordRequest	true	"current and new password"
//	@Success		200
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Router			/auth/change-password [post].
func (h *PasswordHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		errBadJSON.WriteError(w)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		errBadRequest.WriteError(w)
		return
	}

	userID := httpx.UserIDFromContext(r.Context())
	if err := h.Password.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HandleChangeUserPassword godoc
//
//	@Summary		Change password without the current one
//	@Description	Replaces the authenticated account's password, requiring only that the new
//	@Description	password and its confirmation agree.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body	changeUserPasswordRequest	true	"new password"
//	@Success		200
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Router			/auth/change-user-password [post].
func (h *PasswordHandler) HandleChangeUserPassword(w http.ResponseWriter, r *http.Request) {
	var req changeUserPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		errBadJSON.WriteError(w)
		return
	}
	if req.NewPassword == "" {
		errBadRequest.WriteError(w)
		return
	}

	userID := httpx.UserIDFromContext(r.Context())
	if err := h.Password.ChangeUserPassword(r.Context(), userID, req.NewPassword, req.ConfirmPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
