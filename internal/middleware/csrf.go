package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

// CSRFHeader carries the token issued in the csrf_ cookie.
const CSRFHeader = "X-Csrf-Token"

// CSRF protects cookie-authenticated requests. Public paths and requests
// authenticated with a bearer token are not checked.
func CSRF(public PublicPaths) fiber.Handler {
	return csrf.New(csrf.Config{
		Next: func(c *fiber.Ctx) bool {
			return public.Skip(c) || bearerAuth(c)
		},
		KeyLookup:      "header:" + CSRFHeader,
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieHTTPOnly: false,
		Expiration:     time.Hour,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "CSRF token missing or invalid",
				"error":   err.Error(),
			})
		},
	})
}
