package domain

// Role enumerates what a user is allowed to do.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleDispatcher Role = "DIGITADOR"
	RoleTechnician Role = "TECNICO"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDispatcher, RoleTechnician:
		return true
	}
	return false
}
