package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/traits/internal/config"
	"github.com/localnerve/traits/internal/services"
	"github.com/localnerve/traits/internal/types"
)

// LocalsUser is the fiber.Ctx locals key holding the *services.SessionUser of a request
const LocalsUser = "user"

// AuthAdmin validates that the request has admin role authorization
func AuthAdmin(cfg *config.Config) fiber.Handler {
	return authHandler(cfg, []string{"admin"}, "traits.authorization.admin")
}

// AuthUser validates that the request has user role authorization
func AuthUser(cfg *config.Config) fiber.Handler {
	return authHandler(cfg, []string{"user"}, "traits.authorization.user")
}

func authHandler(cfg *config.Config, roles []string, errorType string) fiber.Handler {
	if !cfg.AuthEnabled() {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	return func(c *fiber.Ctx) error {
		return authorize(c, cfg, roles, errorType)
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, cfg *config.Config, roles []string, errorType string) error {
	if !services.IsAuthorizerInitialized() {
		redirectURL := fmt.Sprintf("%s://%s", c.Protocol(), c.Hostname())
		if err := services.InitAuthorizer(cfg, redirectURL); err != nil {
			return types.ForbiddenError(errorType, "Authorizer unavailable: %v", err)
		}
	}

	session := c.Cookies("cookie_session")
	if session == "" {
		return types.ForbiddenError(errorType, "Authorizer cookie \"cookie_session\" not found")
	}

	user, err := services.ValidateSession(session, roles)
	if err != nil {
		return types.ForbiddenError(errorType, "Invalid session: %v", err)
	}

	c.Locals(LocalsUser, user)

	return c.Next()
}

// SessionUser returns the validated user of a request, or nil when authorization is disabled
func SessionUser(c *fiber.Ctx) *services.SessionUser {
	user, _ := c.Locals(LocalsUser).(*services.SessionUser)
	return user
}
