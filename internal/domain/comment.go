package domain

import "time"

// Comment is an immutable note in a ticket thread.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorName string
	Body       string
	IsInternal bool
	CreatedAt  time.Time
}
