package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/averias/internal/access"
	"github.com/spec-kit/averias/internal/domain"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

// RequireRole lets the request through only when the loaded user resolves to
// an actor with one of the allowed roles. No roles means any valid actor.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		actor, err := access.ActorFor(user)
		if err != nil {
			return err
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		for _, role := range allowed {
			if actor.Role() == role {
				return c.Next()
			}
		}
		return apperrors.NewPermissionDenied("insufficient role")
	}
}

// RequireAdmin guards the catalog administration routes.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}
