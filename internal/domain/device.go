package domain

import "time"

// Device is a push notification target registered by a user.
type Device struct {
	ID           string
	UserID       string
	Token        string
	Platform     string
	Active       bool
	RegisteredAt time.Time
	LastUsedAt   time.Time
}
