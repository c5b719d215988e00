package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/averias/internal/api/http/handlers"
	"github.com/spec-kit/averias/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Reports        *handlers.ReportsHandler
	Devices        *handlers.DevicesHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	api.Get("/catalog", cfg.Admin.Catalog)
	api.Get("/dashboard", cfg.Tickets.Dashboard)
	api.Get("/reports/sla", cfg.Reports.SLA)

	// role checks for tickets live in the services; they depend on the ticket
	api.Get("/tickets", cfg.Tickets.List)
	api.Post("/tickets", cfg.Tickets.Create)
	api.Get("/tickets/:id", cfg.Tickets.Get)
	api.Post("/tickets/:id/take", cfg.Tickets.Take)
	api.Post("/tickets/:id/status", cfg.Tickets.UpdateStatus)
	api.Post("/tickets/:id/comments", cfg.Tickets.AddComment)
	api.Put("/tickets/:id/sla", cfg.Tickets.OverrideSLA)

	api.Post("/devices", cfg.Devices.Register)
	api.Delete("/devices/:token", cfg.Devices.Unregister)

	admin := api.Group("/admin", auth.RequireAdmin())
	admin.Get("/locations", cfg.Admin.ListLocations)
	admin.Post("/locations", cfg.Admin.CreateLocation)
	admin.Put("/locations/:id/active", cfg.Admin.SetLocationActive)
	admin.Get("/categories", cfg.Admin.ListCategories)
	admin.Post("/categories", cfg.Admin.CreateCategory)
	admin.Put("/categories/:id/active", cfg.Admin.SetCategoryActive)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Post("/users", cfg.Admin.CreateUser)
	admin.Get("/users/:id", cfg.Admin.GetUser)
	admin.Put("/users/:id/specialties", cfg.Admin.SetSpecialties)
	admin.Put("/users/:id/active", cfg.Admin.SetUserActive)
}
