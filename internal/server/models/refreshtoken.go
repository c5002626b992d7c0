package models

import "time"

// RefreshToken is a row of the refresh token ledger.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	Revoked   bool
	IPAddress *string
	UserAgent *string
	CreatedAt time.Time
}

// Usable reports whether the token may still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
