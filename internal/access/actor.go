// Package access decides who may see and touch which tickets.
//
// Every routing rule lives here once: listing, single-ticket visibility and
// self-assignment all go through CoversCategory and the Predicate built by
// Visibility, so the three can never disagree.
package access

import (
	"github.com/spec-kit/averias/internal/domain"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

// Actor is the authenticated caller. The set of implementations is closed.
type Actor interface {
	ActorID() string
	Role() domain.Role
	actor()
}

// Admin sees and changes everything.
type Admin struct{ ID string }

// Dispatcher files tickets and follows the ones it filed.
type Dispatcher struct{ ID string }

// Technician works tickets. An empty Specialties set marks a generalist.
type Technician struct {
	ID          string
	Specialties []string
}

func (a Admin) ActorID() string { return a.ID }
func (a Admin) Role() domain.Role { return domain.RoleAdmin }
func (Admin) actor() {}
func (d Dispatcher) ActorID() string { return d.ID }
func (Dispatcher) Role() domain.Role { return domain.RoleDispatcher }
func (Dispatcher) actor() {}
func (t Technician) ActorID() string { return t.ID }
func (Technician) Role() domain.Role { return domain.RoleTechnician }
func (Technician) actor() {}

// Generalist reports whether the technician declared no specialties.
func (t Technician) Generalist() bool { return len(t.Specialties) == 0 }

// ActorFor maps a persisted user onto its variant.
func ActorFor(u *domain.User) (Actor, error) {
	if u == nil || !u.Active {
		return nil, apperrors.NewPermissionDenied("user is inactive")
	}
	switch u.Role {
	case domain.RoleAdmin:
		return Admin{ID: u.ID}, nil
	case domain.RoleDispatcher:
		return Dispatcher{ID: u.ID}, nil
	case domain.RoleTechnician:
		specs := make([]string, len(u.Specialties))
		copy(specs, u.Specialties)
		return Technician{ID: u.ID, Specialties: specs}, nil
	default:
		return nil, apperrors.NewPermissionDenied("unknown role")
	}
}

// CoversCategory reports whether a technician may handle tickets of categoryID.
// A nil category is only covered by generalists.
func CoversCategory(t Technician, categoryID *string) bool {
	if t.Generalist() {
		return true
	}
	if categoryID == nil {
		return false
	}
	for _, id := range t.Specialties {
		if id == *categoryID {
			return true
		}
	}
	return false
}
