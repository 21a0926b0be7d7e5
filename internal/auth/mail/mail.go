// Package mail is the outbound mail collaborator. The auth flows only need
// to push a recovery code at an address; delivery tracking, templates and
// localization live elsewhere.
package mail

import "context"

// Sender delivers a single message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
