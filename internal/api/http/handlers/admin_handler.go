package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/averias/internal/api/dto"
	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/service"
)

// AdminHandler manages locations, categories and accounts.
type AdminHandler struct {
	catalog *service.CatalogService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(catalog *service.CatalogService) *AdminHandler {
	return &AdminHandler{catalog: catalog}
}

// ListLocations GET /api/admin/locations?include_inactive=.
func (h *AdminHandler) ListLocations(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	locs, err := h.catalog.ListLocations(c.UserContext(), user, c.QueryBool("include_inactive"))
	if err != nil {
		return err
	}
	items := make([]dto.LocationResponse, 0, len(locs))
	for i := range locs {
		items = append(items, dto.NewLocationResponse(&locs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateLocation POST /api/admin/locations.
func (h *AdminHandler) CreateLocation(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateLocationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	loc, err := h.catalog.CreateLocation(c.UserContext(), user, req.Code, req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewLocationResponse(loc)})
}

// SetLocationActive PUT /api/admin/locations/:id/active.
func (h *AdminHandler) SetLocationActive(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ActiveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	loc, err := h.catalog.SetLocationActive(c.UserContext(), user, c.Params("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLocationResponse(loc)})
}

// ListCategories GET /api/admin/categories?include_inactive=.
func (h *AdminHandler) ListCategories(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	cats, err := h.catalog.ListCategories(c.UserContext(), user, c.QueryBool("include_inactive"))
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(cats))
	for i := range cats {
		items = append(items, dto.NewCategoryResponse(&cats[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateCategory POST /api/admin/categories.
func (h *AdminHandler) CreateCategory(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cat, err := h.catalog.CreateCategory(c.UserContext(), user, req.Name, req.SLAHours)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewCategoryResponse(cat)})
}

// SetCategoryActive PUT /api/admin/categories/:id/active.
func (h *AdminHandler) SetCategoryActive(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ActiveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cat, err := h.catalog.SetCategoryActive(c.UserContext(), user, c.Params("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCategoryResponse(cat)})
}

// ListUsers GET /api/admin/users?role=&active=&page=&page_size=.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	filters := service.UserListFilters{Active: parseBoolQuery(c, "active")}
	if raw := c.Query("role"); raw != "" {
		role := domain.Role(raw)
		filters.Role = &role
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filters.Limit = pageSize
	filters.Offset = (page - 1) * pageSize

	users, err := h.catalog.ListUsers(c.UserContext(), user, filters)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateUser POST /api/admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.catalog.CreateUser(c.UserContext(), user, req.Input())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(created)})
}

// GetUser GET /api/admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	found, err := h.catalog.GetUser(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(found)})
}

// SetSpecialties PUT /api/admin/users/:id/specialties.
func (h *AdminHandler) SetSpecialties(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.SpecialtiesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.catalog.SetSpecialties(c.UserContext(), user, c.Params("id"), req.CategoryIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(updated)})
}

// SetUserActive PUT /api/admin/users/:id/active.
func (h *AdminHandler) SetUserActive(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ActiveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.catalog.SetUserActive(c.UserContext(), user, c.Params("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(updated)})
}

// Catalog GET /api/catalog. Active locations and categories for ticket forms.
func (h *AdminHandler) Catalog(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	locs, err := h.catalog.ListLocations(c.UserContext(), user, false)
	if err != nil {
		return err
	}
	cats, err := h.catalog.ListCategories(c.UserContext(), user, false)
	if err != nil {
		return err
	}
	locItems := make([]dto.LocationResponse, 0, len(locs))
	for i := range locs {
		locItems = append(locItems, dto.NewLocationResponse(&locs[i]))
	}
	catItems := make([]dto.CategoryResponse, 0, len(cats))
	for i := range cats {
		catItems = append(catItems, dto.NewCategoryResponse(&cats[i]))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"locations": locItems, "categories": catItems}})
}
