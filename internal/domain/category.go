package domain

import "time"

// Category groups failures by specialty. SLAHours overrides the priority default.
type Category struct {
	ID        string
	Name      string
	Active    bool
	SLAHours  *int
	CreatedAt time.Time
}
