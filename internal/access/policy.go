package access

import (
	"github.com/spec-kit/averias/internal/domain"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

// CanView reports whether the actor may open the ticket.
func CanView(a Actor, t *domain.Ticket) bool {
	return Visibility(a).Matches(t)
}

// CanComment follows view access.
func CanComment(a Actor, t *domain.Ticket) bool {
	return CanView(a, t)
}

// CanChangeStatus: admins always, technicians only on tickets they hold.
func CanChangeStatus(a Actor, t *domain.Ticket) bool {
	switch v := a.(type) {
	case Admin:
		return t != nil
	case Technician:
		return t != nil && t.AssignedTo(v.ID)
	default:
		return false
	}
}

// CanReassign is admin only.
func CanReassign(a Actor) bool {
	_, ok := a.(Admin)
	return ok
}

// CanCreate reports whether the actor may file tickets.
func CanCreate(a Actor) bool {
	switch a.(type) {
	case Admin, Dispatcher:
		return true
	default:
		return false
	}
}

// CanSeeInternal reports whether internal comments are shown to the actor.
func CanSeeInternal(a Actor) bool {
	switch a.(type) {
	case Admin, Technician:
		return true
	default:
		return false
	}
}

// CanReport gates the SLA report.
func CanReport(a Actor) bool {
	return CanReassign(a)
}

// CanManageCatalog gates locations, categories and users.
func CanManageCatalog(a Actor) bool {
	return CanReassign(a)
}

// CheckTake validates a self-assignment before the conditional write.
// A nil error with t already held by the actor means the take is a no-op.
func CheckTake(a Actor, t *domain.Ticket) error {
	tech, ok := a.(Technician)
	if !ok {
		return apperrors.NewForbidden("only technicians can take tickets")
	}
	if t.AssignedTo(tech.ID) {
		return nil
	}
	if t.IsAssigned() {
		return apperrors.NewConflict("ticket is already assigned", map[string]any{"ticket_id": t.ID})
	}
	if !CoversCategory(tech, t.CategoryID) {
		details := map[string]any{"ticket_id": t.ID}
		if t.CategoryID != nil {
			details["category_id"] = *t.CategoryID
		}
		return apperrors.NewCategoryMismatch(details)
	}
	return nil
}

// Permissions is the per-ticket capability set shown to clients.
type Permissions struct {
	CanChangeStatus bool `json:"can_change_status"`
	CanReassign     bool `json:"can_reassign"`
	CanTake         bool `json:"can_take"`
	CanComment      bool `json:"can_comment"`
	CanSeeInternal  bool `json:"can_see_internal"`
}

// PermissionsFor summarizes what the actor may do with t.
func PermissionsFor(a Actor, t *domain.Ticket) Permissions {
	return Permissions{
		CanChangeStatus: CanChangeStatus(a, t),
		CanReassign:     CanReassign(a),
		CanTake:         !t.IsAssigned() && CheckTake(a, t) == nil,
		CanComment:      CanComment(a, t),
		CanSeeInternal:  CanSeeInternal(a),
	}
}
