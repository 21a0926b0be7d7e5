package http

import (
	"net/http"
	"strings"

	"github.com/moduhq/modu/internal/auth/service"
	"github.com/moduhq/modu/pkg/httpx"
)

// LoginHandler serves the password login endpoints.
type LoginHandler struct {
	Auth *service.AuthService
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// HandleLogin godoc
//
//	@Summary		Password login
//	@Description	Authenticates an email/password account and returns an access and refresh token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		loginRequest	true	"credentials"
//	@Success		200		{object}	LoginResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/auth/login [post].
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		errBadJSON.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		errBadRequest.WriteError(w)
		return
	}

	u, pair, err := h.Auth.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newLoginResponse(u, pair))
}

// HandleAdminLogin godoc
//
//	@Summary		Administrator login
//	@Description	Same contract as /auth/login but only admin-role accounts may pass.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		loginRequest	true	"credentials"
//	@Success		200		{object}	LoginResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/auth/admin-login [post].
func (h *LoginHandler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		errBadJSON.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		errBadRequest.WriteError(w)
		return
	}

	u, pair, err := h.Auth.AdminLogin(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newLoginResponse(u, pair))
}
