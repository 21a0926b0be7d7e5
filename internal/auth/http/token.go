package http

import (
	"net/http"

	"github.com/moduhq/modu/internal/auth/service"
	"github.com/moduhq/modu/pkg/httpx"
)

// TokenHandler serves token refresh and logout.
type TokenHandler struct {
	Tokens *service.TokenService
}

// HandleRefresh godoc
//
//	@Summary		Refresh the access token
//	@Description	Exchanges a still-valid refresh token for a new access token. The refresh
//	@Description	token itself is left in place and keeps its original expiry.
//	@Tags			Token
//	@Produce		json
//	@Param			refreshToken	query		string	true	"refresh token"
//	@Success		200				{object}	TokenResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		403				{object}	ErrorResponse
//	@Router			/auth/refresh-access-token [get].
func (h *TokenHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("refreshToken")
	if token == "" {
		errBadRequest.WriteError(w)
		return
	}

	pair, err := h.Tokens.Refresh(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Revokes the authenticated account's refresh token. Safe to call twice.
//	@Tags			Token
//	@Security		BearerAuth
//	@Success		200
//	@Failure		401	{object}	ErrorResponse
//	@Router			/auth/logout [get].
func (h *TokenHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if err := h.Tokens.Logout(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
