package domain

import "time"

// Role values stored on a user account.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusBlocked  = "blocked"
)

// Social login providers. ProviderNone marks a password-only account.
const (
	ProviderNone   = "none"
	ProviderGoogle = "google"
	ProviderKakao  = "kakao"
	ProviderNaver  = "naver"
	ProviderApple  = "apple"
)

type UserAccount struct {
	ID               string
	Email            string
	PasswordHash     string // argon2 encoded, empty for social-only accounts
	DisplayName      string
	Role             string // RoleUser or RoleAdmin
	Status           string // StatusActive, StatusInactive or StatusBlocked
	Provider         string // ProviderNone for password accounts
	RefreshTokenHash string // fingerprint of the single active refresh token
	RememberMe       bool
	DeviceTokens     []string // FCM push registration tokens
	Slug             int      // sequential public number, assigned at signup
	IsVerified       bool     // cleared when the password is reset by an admin flow
	Image            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsActive reports whether the account may authenticate.
func (u *UserAccount) IsActive() bool {
	return u.Status == StatusActive
}

// IsSocial reports whether the account was created through a social provider.
func (u *UserAccount) IsSocial() bool {
	return u.Provider != "" && u.Provider != ProviderNone
}

// ValidRole reports whether s is a known role value.
func ValidRole(s string) bool {
	return s == RoleUser || s == RoleAdmin
}

// ValidProvider reports whether s is a known social provider value.
func ValidProvider(s string) bool {
	switch s {
	case ProviderGoogle, ProviderKakao, ProviderNaver, ProviderApple:
		return true
	}
	return false
}
