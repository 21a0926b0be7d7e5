package domain

import "time"

// TokenPair is what the login and refresh endpoints return: a short-lived
// access token and a long-lived refresh token, both signed JWTs.
type TokenPair struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken,omitempty"`
	TokenType    string        `json:"tokenType,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expiresIn"`           // seconds until access token expiry
}
