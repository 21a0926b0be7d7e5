package domain

import "time"

// Otp is a single-use numeric recovery code mailed to a user. At most one
// code exists per email; requesting a new one replaces the old.
type Otp struct {
	Email     string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the code is no longer redeemable at now.
func (o *Otp) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
