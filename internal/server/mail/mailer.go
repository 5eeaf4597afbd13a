// Package mail provides transactional email delivery for verification and
// password-reset flows.
package mail

import "context"

// Mailer is the adapter interface for mail delivery mechanisms. Delivery
// failures are reported to the caller, which decides whether they are fatal;
// the auth flows log and swallow them.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
