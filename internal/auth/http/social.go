package http

import (
	"net/http"

	"github.com/moduhq/modu/internal/auth/domain"
	"github.com/moduhq/modu/internal/auth/service"
	"github.com/moduhq/modu/pkg/httpx"
)

// SocialHandler serves the social sign-in endpoints.
type SocialHandler struct {
	Auth *service.AuthService
}

type socialLoginRequest struct {
	Provider    string `json:"provider"`
	Token       string `json:"token"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Image       string `json:"image"`
	AcceptTerms bool   `json:"acceptTerms"`
	RememberMe  bool   `json:"rememberMe"`
}

type appleLoginRequest struct {
	IdentityToken string `json:"identityToken"`
	Nonce         string `json:"nonce"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	AcceptTerms   bool   `json:"acceptTerms"`
	RememberMe    bool   `json:"rememberMe"`
}

// HandleSocialLogin godoc
//
//	@Summary		Social login
//	@Description	Verifies a Google, Kakao or Naver token against the provider and signs the
//	@Description	account in, creating it on first contact when the terms were accepted.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		socialLoginRequest	true	"provider token and profile hints"
//	@Success		200		{object}	LoginResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/auth/social-login [post].
func (h *SocialHandler) HandleSocialLogin(w http.ResponseWriter, r *http.Request) {
	var req socialLoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		errBadJSON.WriteError(w)
		return
	}

	u, pair, err := h.Auth.SocialLogin(r.Context(), service.SocialLoginInput{
		Provider:    req.Provider,
		Token:       req.Token,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Image:       req.Image,
		AcceptTerms: req.AcceptTerms,
		RememberMe:  req.RememberMe,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newLoginResponse(u, pair))
}

// HandleAppleLogin godoc
//
//	@Summary		Apple login
//	@Description	Verifies an Apple identity token locally against Apple's published keys,
//	@Description	binding it to the nonce issued at the start of the flow.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		appleLoginRequest	true	"identity token, nonce and profile hints"
//	@Success		200		{object}	LoginResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/auth/apple-login [post].
func (h *SocialHandler) HandleAppleLogin(w http.ResponseWriter, r *http.Request) {
	var req appleLoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		errBadJSON.WriteError(w)
		return
	}

	u, pair, err := h.Auth.SocialLogin(r.Context(), service.SocialLoginInput{
		Provider:    domain.ProviderApple,
		Token:       req.IdentityToken,
		Nonce:       req.Nonce,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		AcceptTerms: req.AcceptTerms,
		RememberMe:  req.RememberMe,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newLoginResponse(u, pair))
}
