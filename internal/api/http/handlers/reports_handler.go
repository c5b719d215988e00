package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/averias/internal/service"
)

// ReportsHandler exposes the SLA reporting dashboard.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// SLA GET /api/reports/sla.
func (h *ReportsHandler) SLA(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	dashboard, err := h.reports.SLADashboard(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboard})
}
