package middleware

import (
	"log"
	"strings"

	"github.com/fayyadalaas-cell/fxleagues-sub000/models"

	"github.com/gofiber/fiber/v2"
)

// IdentityMiddleware builds an explicit models.Identity from the headers the
// Gateway asserts and attaches it to the request context. Operations receive
// this value as a parameter; nothing downstream reads ambient session state.
func IdentityMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			log.Printf("❌ [IDENTITY] X-User-ID missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		if rolesStr := c.Get("X-User-Roles"); rolesStr != "" {
			for _, r := range strings.Split(rolesStr, ",") {
				r = strings.TrimSpace(r)
				if r != "" {
					roles = append(roles, r)
				}
			}
		}

		c.Locals("identity", models.Identity{
			UserID:        userID,
			DisplayName:   c.Get("X-User-Name"),
			Roles:         roles,
			Banned:        strings.EqualFold(c.Get("X-User-Banned"), "true"),
			EmailVerified: strings.EqualFold(c.Get("X-Email-Verified"), "true"),
		})

		return c.Next()
	}
}
