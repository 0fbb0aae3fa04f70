package middleware

import (
	"log"
	"strings"

	"digizone/internal/apperrors"
	"digizone/internal/models"
	"digizone/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthCookieName is the cookie the storefront keeps the auth token in.
const AuthCookieName = "_digi_auth_token"

const identityKey = "identity"

// PublicPaths lists request paths that skip authentication and CSRF checks.
type PublicPaths []string

// Skip reports whether the request targets a public path.
func (p PublicPaths) Skip(c *fiber.Ctx) bool {
	path := strings.TrimSuffix(c.Path(), "/")
	for _, public := range p {
		if path == public {
			return true
		}
	}
	return false
}

// AuthRequired is a Fiber middleware to check for a valid JWT token, taken
// from the Authorization header or the auth cookie.
func AuthRequired(authService *services.AuthService, public PublicPaths) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if public.Skip(c) {
			return c.Next()
		}

		tokenString, err := tokenFrom(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": err.Error(),
			})
		}

		identity, err := authService.ValidateToken(tokenString)
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// Identity returns the caller stored by AuthRequired, or nil.
func Identity(c *fiber.Ctx) *models.Identity {
	identity, _ := c.Locals(identityKey).(*models.Identity)
	return identity
}

func tokenFrom(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") || parts[1] == "" {
			return "", apperrors.Unauthorized("Authorization header format must be 'Bearer <token>'")
		}
		return parts[1], nil
	}
	if cookie := c.Cookies(AuthCookieName); cookie != "" {
		return cookie, nil
	}
	return "", apperrors.Unauthorized("Authorization header or auth cookie is required")
}

func bearerAuth(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
}
