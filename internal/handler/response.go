package handler

import (
	"errors"

	"github.com/andressep95/session-service/internal/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// statusFor maps domain error kinds onto HTTP status codes.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case domain.KindForbidden:
		return fiber.StatusForbidden
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindConflict:
		return fiber.StatusConflict
	case domain.KindStore:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func success(c *fiber.Ctx, message string, data interface{}) error {
	body := fiber.Map{
		"success": true,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// respondError writes err in the common envelope. Unknown errors are logged and
// hidden behind a generic 500.
func respondError(c *fiber.Ctx, log logrus.FieldLogger, err error) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		log.WithError(err).WithField("path", c.Path()).Error("Unhandled error")
		return failure(c, fiber.StatusInternalServerError, "internal server error")
	}

	status := statusFor(de.Kind)
	if de.Kind == domain.KindStore {
		log.WithError(err).WithField("path", c.Path()).Error("Store unavailable")
		return failure(c, status, "service temporarily unavailable, please retry")
	}

	body := fiber.Map{
		"success": false,
		"message": de.Message,
	}
	if len(de.Fields) > 0 {
		body["errors"] = de.Fields
	}
	return c.Status(status).JSON(body)
}

func invalidBody(c *fiber.Ctx) error {
	return failure(c, fiber.StatusBadRequest, "invalid request body")
}
