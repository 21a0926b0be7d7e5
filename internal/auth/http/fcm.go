package http

import (
	"net/http"

	"github.com/moduhq/modu/internal/auth/service"
	"github.com/moduhq/modu/pkg/httpx"
)

// DeviceHandler serves push notification device registration.
type DeviceHandler struct {
	Auth *service.AuthService
}

type registerFcmTokenRequest struct {
	FcmToken string `json:"fcmToken"`
}

// HandleRegisterFcmToken godoc
//
//	@Summary		Register a device token
//	@Description	Attaches an FCM device token to the authenticated account. Registering the
//	@Description	same token again is a no-op.
//	@Tags			Auth
//	@Accept			json
//	@Security		BearerAuth
//	@Param			body	body	registerFcmTokenRequest	true	"device token"
//	@Success		200
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/auth/register-fcm-token [post].
func (h *DeviceHandler) HandleRegisterFcmToken(w http.ResponseWriter, r *http.Request) {
	var req registerFcmTokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		errBadJSON.WriteError(w)
		return
	}

	userID := httpx.UserIDFromContext(r.Context())
	if err := h.Auth.RegisterDeviceToken(r.Context(), userID, req.FcmToken); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
