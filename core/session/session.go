// Package session owns the authenticated identity of one app context:
// login, logout, password change, profile update, token refresh and
// permission checks, persisted across restarts through three storage slots
// and bounded by wall-clock expiry.
package session

import "time"

// Slot names for persisted auth state.
const (
	TokenSlot   = "authToken"
	UserSlot    = "authUser"
	SessionSlot = "authSession"
)

// Session ties one account to one live authentication.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Token        string    `json:"token"`
	Device       string    `json:"device,omitempty"`
	ClientAddr   string    `json:"client_addr,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
