package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/traits/internal/types"
)

// APIVersion is the version served when a request names none
const APIVersion = "1.0.0"

// VersionMiddleware resolves the X-Api-Version header, stores it in context and echoes it.
// Only major version 1 is served.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", APIVersion)

		switch strings.Count(version, ".") {
		case 0:
			version += ".0.0"
		case 1:
			version += ".0"
		}

		if !strings.HasPrefix(version, "1.") {
			return types.ValidationError("Unsupported API version %s", version)
		}

		c.Locals("apiVersion", version)
		c.Set("X-Api-Version", version)

		return c.Next()
	}
}
