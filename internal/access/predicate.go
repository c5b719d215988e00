package access

import (
	"strings"

	"github.com/spec-kit/averias/internal/domain"
)

// View selects a status slice for admin and dispatcher listings.
type View string

const (
	ViewOpen   View = "open"
	ViewClosed View = "closed"
	ViewAll    View = "all"
)

// ParseView defaults anything unrecognized to ViewOpen.
func ParseView(s string) View {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case ViewClosed:
		return ViewClosed
	case ViewAll:
		return ViewAll
	default:
		return ViewOpen
	}
}

var (
	openStatuses = []domain.TicketStatus{
		domain.TicketStatusPending,
		domain.TicketStatusInProgress,
	}
	closedStatuses = []domain.TicketStatus{
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
		domain.TicketStatusCancelled,
	}
	technicianStatuses = []domain.TicketStatus{
		domain.TicketStatusPending,
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
	}
)

// TechnicianScope matches tickets held by UserID, or unassigned tickets whose
// category is in Categories. Empty Categories matches every unassigned ticket.
// HeldOnly drops the unassigned branch.
type TechnicianScope struct {
	UserID     string
	Categories []string
	HeldOnly   bool
}

// Predicate is a ticket filter that can be evaluated in memory or rendered to SQL.
// The zero value matches everything.
type Predicate struct {
	Deny       bool
	CreatedBy  string
	Technician *TechnicianScope
	Statuses   []domain.TicketStatus
}

// Matches evaluates the predicate against a single ticket.
func (p Predicate) Matches(t *domain.Ticket) bool {
	if p.Deny || t == nil {
		return false
	}
	if p.CreatedBy != "" && t.CreatedByID != p.CreatedBy {
		return false
	}
	if p.Technician != nil && !p.Technician.matches(t) {
		return false
	}
	if len(p.Statuses) > 0 {
		found := false
		for _, s := range p.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s TechnicianScope) matches(t *domain.Ticket) bool {
	if t.AssignedTo(s.UserID) {
		return true
	}
	if s.HeldOnly || t.IsAssigned() {
		return false
	}
	return CoversCategory(Technician{ID: s.UserID, Specialties: s.Categories}, t.CategoryID)
}

// Visibility returns the rule for which tickets an actor may see at all.
func Visibility(a Actor) Predicate {
	switch v := a.(type) {
	case Admin:
		return Predicate{}
	case Dispatcher:
		return Predicate{CreatedBy: v.ID}
	case Technician:
		cats := make([]string, len(v.Specialties))
		copy(cats, v.Specialties)
		return Predicate{Technician: &TechnicianScope{UserID: v.ID, Categories: cats}}
	default:
		return Predicate{Deny: true}
	}
}

// DashboardPredicate is Visibility except for generalists, whose dashboard
// counts only the tickets they hold rather than the whole unassigned queue.
func DashboardPredicate(a Actor) Predicate {
	p := Visibility(a)
	if t, ok := a.(Technician); ok && t.Generalist() {
		p.Technician.HeldOnly = true
	}
	return p
}

// ListPredicate narrows Visibility to the statuses a listing shows.
// Technicians always get their working set; view is ignored for them.
func ListPredicate(a Actor, view View) Predicate {
	p := Visibility(a)
	if p.Deny {
		return p
	}
	if _, ok := a.(Technician); ok {
		p.Statuses = technicianStatuses
		return p
	}
	switch view {
	case ViewAll:
		p.Statuses = nil
	case ViewClosed:
		p.Statuses = closedStatuses
	default:
		p.Statuses = openStatuses
	}
	return p
}
