package http

import (
	"net/http"

	"github.com/moduhq/modu/internal/auth/service"
	"github.com/moduhq/modu/pkg/httpx"
)

// SessionHandler serves authenticated session introspection.
type SessionHandler struct {
	Auth *service.AuthService
}

// HandleCheckLogin godoc
//
//	@Summary		Check login
//	@Description	Confirms the bearer token still maps to a live account and returns its profile.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ProfileResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/auth/check-login [get].
func (h *SessionHandler) HandleCheckLogin(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	u, err := h.Auth.CheckLogin(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newProfileResponse(u))
}
