package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/averias/internal/access"
	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/repository"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

// CatalogService manages locations, categories and user accounts.
type CatalogService struct {
	locations  repository.LocationRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
}

// CatalogDependencies encapsulates repositories required for catalog management.
type CatalogDependencies struct {
	LocationRepo repository.LocationRepository
	CategoryRepo repository.CategoryRepository
	UserRepo     repository.UserRepository
}

// UserInput carries the editable user fields.
type UserInput struct {
	Username    string
	FullName    string
	Email       string
	Phone       string
	WhatsApp    string
	Role        domain.Role
	Specialties []string
}

// UserListFilters define listing parameters.
type UserListFilters struct {
	Role   *domain.Role
	Active *bool
	Limit  int
	Offset int
}

// NewCatalogService constructs the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	return &CatalogService{
		locations:  deps.LocationRepo,
		categories: deps.CategoryRepo,
		users:      deps.UserRepo,
	}
}

func requireAdmin(user *domain.User) error {
	actor, err := actorOf(user)
	if err != nil {
		return err
	}
	if !access.CanManageCatalog(actor) {
		return apperrors.NewPermissionDenied("admin role required")
	}
	return nil
}

// CreateLocation registers a new site.
func (s *CatalogService) CreateLocation(ctx context.Context, user *domain.User, code, name string) (*domain.Location, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, apperrors.NewValidationError("code and name are required", nil)
	}
	loc := &domain.Location{Code: code, Name: name, Active: true}
	if err := s.locations.Create(ctx, loc); err != nil {
		return nil, apperrors.MapError(err)
	}
	return loc, nil
}

// ListLocations returns sites. Non-admins only see active ones.
func (s *CatalogService) ListLocations(ctx context.Context, user *domain.User, includeInactive bool) ([]domain.Location, error) {
	actor, err := actorOf(user)
	if err != nil {
		return nil, err
	}
	activeOnly := !includeInactive || !access.CanManageCatalog(actor)
	locs, err := s.locations.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return locs, nil
}

// SetLocationActive toggles whether new tickets may be filed for a site.
func (s *CatalogService) SetLocationActive(ctx context.Context, user *domain.User, id string, active bool) (*domain.Location, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "location", id)
	}
	loc.Active = active
	if err := s.locations.Update(ctx, loc); err != nil {
		return nil, lookupErr(err, "location", id)
	}
	return loc, nil
}

// CreateCategory adds a failure category with an optional SLA override.
func (s *CatalogService) CreateCategory(ctx context.Context, user *domain.User, name string, slaHours *int) (*domain.Category, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if slaHours != nil && *slaHours <= 0 {
		return nil, apperrors.NewValidationError("sla_hours must be positive", map[string]any{"sla_hours": *slaHours})
	}
	cat := &domain.Category{Name: name, Active: true, SLAHours: slaHours}
	if err := s.categories.Create(ctx, cat); err != nil {
		return nil, apperrors.MapError(err)
	}
	return cat, nil
}

// ListCategories returns categories. Non-admins only see active ones.
func (s *CatalogService) ListCategories(ctx context.Context, user *domain.User, includeInactive bool) ([]domain.Category, error) {
	actor, err := actorOf(user)
	if err != nil {
		return nil, err
	}
	activeOnly := !includeInactive || !access.CanManageCatalog(actor)
	cats, err := s.categories.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return cats, nil
}

// SetCategoryActive toggles a category.
func (s *CatalogService) SetCategoryActive(ctx context.Context, user *domain.User, id string, active bool) (*domain.Category, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}
	cat, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "category", id)
	}
	cat.Active = active
	if err := s.categories.Update(ctx, cat); err != nil {
		return nil, lookupErr(err, "category", id)
	}
	return cat, nil
}

// CreateUser adds an account. Credentials live with the identity provider.
func (s *CatalogService) CreateUser(ctx context.Context, user *domain.User, input UserInput) (*domain.User, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username is required", nil)
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}
	if existing, err := s.users.GetByUsername(ctx, username); err == nil && existing != nil {
		return nil, apperrors.NewConflict("username already exists", map[string]any{"username": username})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	specialties, err := s.checkSpecialties(ctx, input.Role, input.Specialties)
	if err != nil {
		return nil, err
	}

	created := &domain.User{
		Username:    username,
		FullName:    strings.TrimSpace(input.FullName),
		Email:       strings.TrimSpace(input.Email),
		Phone:       strings.TrimSpace(input.Phone),
		WhatsApp:    strings.TrimSpace(input.WhatsApp),
		Role:        input.Role,
		Active:      true,
		Specialties: specialties,
	}
	if err := s.users.Create(ctx, created); err != nil {
		return nil, apperrors.MapError(err)
	}
	return created, nil
}

// ListUsers lists accounts with filters.
func (s *CatalogService) ListUsers(ctx context.Context, user *domain.User, filters UserListFilters) ([]domain.User, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, repository.UserFilter{
		Role:   filters.Role,
		Active: filters.Active,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// GetUser fetches an account.
func (s *CatalogService) GetUser(ctx context.Context, user *domain.User, id string) (*domain.User, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "user", id)
	}
	return u, nil
}

// SetSpecialties replaces a technician's category list. Empty makes them a generalist.
func (s *CatalogService) SetSpecialties(ctx context.Context, user *domain.User, userID string, categoryIDs []string) (*domain.User, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, lookupErr(err, "user", userID)
	}
	specialties, err := s.checkSpecialties(ctx, target.Role, categoryIDs)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetSpecialties(ctx, target.ID, specialties); err != nil {
		return nil, apperrors.MapError(err)
	}
	target.Specialties = specialties
	return target, nil
}

// SetUserActive enables or disables an account. Admins cannot disable themselves.
func (s *CatalogService) SetUserActive(ctx context.Context, user *domain.User, userID string, active bool) (*domain.User, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}
	if !active && user.ID == userID {
		return nil, apperrors.NewConflict("cannot deactivate your own account", map[string]any{"user_id": userID})
	}
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, lookupErr(err, "user", userID)
	}
	if err := s.users.SetActive(ctx, target.ID, active); err != nil {
		return nil, lookupErr(err, "user", userID)
	}
	target.Active = active
	return target, nil
}

func (s *CatalogService) checkSpecialties(ctx context.Context, role domain.Role, categoryIDs []string) ([]string, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	if role != domain.RoleTechnician {
		return nil, apperrors.NewValidationError("only technicians have specialties", map[string]any{"role": role})
	}
	seen := make(map[string]struct{}, len(categoryIDs))
	out := make([]string, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		if _, err := s.categories.GetByID(ctx, id); err != nil {
			return nil, lookupErr(err, "category", id)
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
