package domain

// Identity is the verified subject a social provider vouches for. Produced
// by provider verification, consumed by the social login flow.
type Identity struct {
	Provider    string // ProviderGoogle, ProviderKakao, ...
	ProviderID  string // provider-scoped subject identifier
	Email       string
	DisplayName string
	Image       string
}
