package entities

import "time"

// ConfirmationTicket is issued when a destructive action is requested.
// The ticket must be presented back to confirm the action; it is single-use
// and expires. The ticket is bound to the exact action and inputs it was
// issued for, so confirmation cannot be skipped or replayed.
type ConfirmationTicket struct {
	Token       string
	Action      Action
	Description string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the ticket is no longer valid at the given time.
func (t ConfirmationTicket) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
