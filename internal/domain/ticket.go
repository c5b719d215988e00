package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusCancelled  TicketStatus = "CANCELLED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ParseTicketStatus normalizes s and reports whether it is a known status.
func ParseTicketStatus(s string) (TicketStatus, bool) {
	st := TicketStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusResolved,
		TicketStatusClosed, TicketStatusCancelled:
		return st, true
	}
	return "", false
}

// ParseTicketPriority normalizes s; empty input yields MEDIUM.
func ParseTicketPriority(s string) (TicketPriority, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return TicketPriorityMedium, true
	}
	p := TicketPriority(s)
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return p, true
	}
	return "", false
}

// Terminal reports whether nothing can leave this status.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled
}

// Ticket is the aggregate for a reported failure.
type Ticket struct {
	ID           string
	Number       string
	Title        string
	Description  string
	LocationID   string
	LocationCode string
	LocationName string
	CategoryID   *string
	CategoryName string
	Status       TicketStatus
	Priority     TicketPriority
	CreatedByID  string
	AssignedToID *string
	Solution     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	AssignedAt   *time.Time
	ResolvedAt   *time.Time
	ClosedAt     *time.Time
	SLADeadline  time.Time
}

// IsAssigned reports whether some technician holds the ticket.
func (t Ticket) IsAssigned() bool {
	return t.AssignedToID != nil && *t.AssignedToID != ""
}

// AssignedTo reports whether userID holds the ticket.
func (t Ticket) AssignedTo(userID string) bool {
	return t.IsAssigned() && *t.AssignedToID == userID
}

// Overdue reports whether the deadline has passed at now.
func (t Ticket) Overdue(now time.Time) bool {
	return t.SLADeadline.Before(now)
}
