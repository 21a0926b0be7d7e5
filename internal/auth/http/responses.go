package http

import (
	"time"

	"github.com/moduhq/modu/internal/auth/domain"
)

// TokenResponse carries an issued token pair. RefreshToken is omitted on
// refresh, which only re-mints the access token.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"` // seconds until access token expiry
}

func newTokenResponse(p domain.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int(p.ExpiresIn),
	}
}

// ProfileResponse is the public view of an account. The password hash and
// session fields never leave the service.
type ProfileResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	Provider    string    `json:"provider"`
	Slug        int       `json:"slug"`
	IsVerified  bool      `json:"isVerified"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newProfileResponse(u domain.UserAccount) ProfileResponse {
	return ProfileResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Status:      u.Status,
		Provider:    u.Provider,
		Slug:        u.Slug,
		IsVerified:  u.IsVerified,
		Image:       u.Image,
		CreatedAt:   u.CreatedAt,
	}
}

// LoginResponse is returned by the login flows: the profile plus tokens.
type LoginResponse struct {
	User   ProfileResponse `json:"user"`
	Tokens TokenResponse   `json:"tokens"`
}

func newLoginResponse(u domain.UserAccount, p domain.TokenPair) LoginResponse {
	return LoginResponse{User: newProfileResponse(u), Tokens: newTokenResponse(p)}
}
