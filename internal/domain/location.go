package domain

import "time"

// Location is a store or site where failures are reported.
type Location struct {
	ID        string
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
}
