package models

import "time"

// TokenKind discriminates the three purposes an opaque token can serve.
type TokenKind string

const (
	TokenKindVerification  TokenKind = "VERIFICATION"
	TokenKindResetPassword TokenKind = "RESET_PASSWORD"
	TokenKindRefresh       TokenKind = "REFRESH"
)

// Token is a single-use opaque credential stored server-side. Used is
// monotonic: once true it never reverts. Rows are retained after consumption
// for audit and replay detection.
type Token struct {
	ID        string
	UserID    string
	Value     string
	Kind      TokenKind
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token's expiry has passed at the given time.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Consumable reports whether the token can still be redeemed at the given
// time. The actual consumption must go through the repository's conditional
// update; this is only the pre-check.
func (t *Token) Consumable(now time.Time) bool {
	return !t.Used && !t.Expired(now)
}
