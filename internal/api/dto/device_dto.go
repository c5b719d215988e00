package dto

import (
	"time"

	"github.com/spec-kit/averias/internal/domain"
)

// RegisterDeviceRequest payload.
type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required,max=512"`
	Platform string `json:"platform" validate:"omitempty,oneof=android ios web"`
}

// DeviceResponse is the wire form of a push registration.
type DeviceResponse struct {
	ID           string    `json:"id"`
	Platform     string    `json:"platform"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
}

// NewDeviceResponse maps a device. The token itself is not echoed back.
func NewDeviceResponse(d *domain.Device) DeviceResponse {
	return DeviceResponse{ID: d.ID, Platform: d.Platform, Active: d.Active, RegisteredAt: d.RegisteredAt}
}
