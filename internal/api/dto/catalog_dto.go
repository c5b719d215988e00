package dto

import (
	"time"

	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/service"
)

// CreateLocationRequest payload.
type CreateLocationRequest struct {
	Code string `json:"code" validate:"required,max=32"`
	Name string `json:"name" validate:"required,max=255"`
}

// CreateCategoryRequest payload. SLAHours overrides the priority default.
type CreateCategoryRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	SLAHours *int   `json:"sla_hours" validate:"omitempty,gt=0"`
}

// CreateUserRequest payload.
type CreateUserRequest struct {
	Username    string   `json:"username" validate:"required,max=150"`
	FullName    string   `json:"full_name" validate:"max=255"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Phone       string   `json:"phone" validate:"max=32"`
	WhatsApp    string   `json:"whatsapp" validate:"max=32"`
	Role        string   `json:"role" validate:"required,oneof=ADMIN DIGITADOR TECNICO"`
	Specialties []string `json:"specialties"`
}

// Input maps the request onto the service input.
func (r CreateUserRequest) Input() service.UserInput {
	return service.UserInput{
		Username:    r.Username,
		FullName:    r.FullName,
		Email:       r.Email,
		Phone:       r.Phone,
		WhatsApp:    r.WhatsApp,
		Role:        domain.Role(r.Role),
		Specialties: r.Specialties,
	}
}

// SpecialtiesRequest replaces a technician's categories.
type SpecialtiesRequest struct {
	CategoryIDs []string `json:"category_ids"`
}

// ActiveRequest toggles an entity.
type ActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// LocationResponse is the wire form of a site.
type LocationResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewLocationResponse maps a location.
func NewLocationResponse(l *domain.Location) LocationResponse {
	return LocationResponse{ID: l.ID, Code: l.Code, Name: l.Name, Active: l.Active, CreatedAt: l.CreatedAt}
}

// CategoryResponse is the wire form of a category.
type CategoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	SLAHours  *int      `json:"sla_hours"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCategoryResponse maps a category.
func NewCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Active: c.Active, SLAHours: c.SLAHours, CreatedAt: c.CreatedAt}
}

// UserResponse is the wire form of an account.
type UserResponse struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	FullName    string      `json:"full_name"`
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	WhatsApp    string      `json:"whatsapp,omitempty"`
	Role        domain.Role `json:"role"`
	Active      bool        `json:"active"`
	Specialties []string    `json:"specialties"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewUserResponse maps a user.
func NewUserResponse(u *domain.User) UserResponse {
	specialties := u.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		FullName:    u.FullName,
		Email:       u.Email,
		Phone:       u.Phone,
		WhatsApp:    u.WhatsApp,
		Role:        u.Role,
		Active:      u.Active,
		Specialties: specialties,
		CreatedAt:   u.CreatedAt,
	}
}
