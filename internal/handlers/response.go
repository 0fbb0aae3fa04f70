package handlers

import (
	"log"

	"digizone/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

// respondError answers with the status that matches the error kind.
func respondError(c *fiber.Ctx, err error, message string) error {
	status := apperrors.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("%s: %v", message, err)
	}
	body := fiber.Map{
		"message": message,
		"error":   err.Error(),
	}
	if violations := apperrors.ViolationsOf(err); len(violations) > 0 {
		body["violations"] = violations
	}
	return c.Status(status).JSON(body)
}
