package domain

import "time"

// User is anyone who logs in: admins, dispatchers and technicians.
type User struct {
	ID          string
	Username    string
	FullName    string
	Email       string
	Phone       string
	WhatsApp    string
	Role        Role
	Active      bool
	Specialties []string // category ids; empty means generalist
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DisplayName falls back to the username when no full name was recorded.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
