package middleware

import (
	"strings"

	"feira/internal/errs"
	"feira/internal/models"
	"feira/internal/services"

	"github.com/gofiber/fiber/v2"
)

const (
	actorKey = "actor"
	userKey  = "user"
)

// AuthRequired is a Fiber middleware that resolves the bearer token to an
// active user and stores the actor in the context locals.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return errs.Unauthorized("authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return errs.Unauthorized("authorization header format must be 'Bearer <token>'")
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			return err
		}
		// Role and active flag come from the stored user, not the token, so
		// deactivation takes effect at once.
		user, err := authService.CurrentUser(c.UserContext(), claims.UserID)
		if err != nil {
			return err
		}

		c.Locals(userKey, user)
		c.Locals(actorKey, user.Actor())
		return c.Next()
	}
}

// RequireRole rejects actors whose role is not listed. It must run after
// AuthRequired.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := c.Locals(actorKey).(models.Actor)
		if !ok {
			return errs.Unauthorized("authentication required")
		}
		for _, role := range roles {
			if actor.Role == role {
				return c.Next()
			}
		}
		return errs.Forbidden("role %s may not access this resource", actor.Role)
	}
}

// Actor returns the authenticated actor of the request.
func Actor(c *fiber.Ctx) models.Actor {
	actor, _ := c.Locals(actorKey).(models.Actor)
	return actor
}

// CurrentUser returns the authenticated user of the request, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}
