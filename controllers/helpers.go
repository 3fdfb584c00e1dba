package controller

import (
	"log"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

// internalError logs the causal error with full detail, reports it to
// Sentry and returns a generic 500 to the client.
func internalError(c *fiber.Ctx, logger *log.Logger, msg string, err error) error {
	logger.Printf("%s: %v", msg, err)
	sentry.CaptureException(err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "An unexpected error occurred",
	})
}
