package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/averias/internal/api/dto"
	"github.com/spec-kit/averias/internal/service"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

// DevicesHandler manages push registrations of the caller.
type DevicesHandler struct {
	devices *service.DeviceService
}

// NewDevicesHandler constructs handler.
func NewDevicesHandler(devices *service.DeviceService) *DevicesHandler {
	return &DevicesHandler{devices: devices}
}

// Register POST /api/devices.
func (h *DevicesHandler) Register(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.RegisterDeviceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	device, err := h.devices.Register(c.UserContext(), user, req.Token, req.Platform)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewDeviceResponse(device)})
}

// Unregister DELETE /api/devices/:token.
func (h *DevicesHandler) Unregister(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	// FCM tokens contain ':' so clients escape them
	token, err := url.PathUnescape(c.Params("token"))
	if err != nil {
		return apperrors.NewValidationError("invalid token", nil)
	}
	if err := h.devices.Unregister(c.UserContext(), user, token); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
