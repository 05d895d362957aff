package utils

import (
	"errors"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"github.com/gofiber/fiber/v2"
)

func JSONSuccess(c *fiber.Ctx, status int, payload interface{}) error {
	return c.Status(status).JSON(fiber.Map{"status": "ok", "data": payload})
}

// JSONError renders err with the status and code of its kind. Unknown errors
// are reported as INTERNAL without leaking their text.
func JSONError(c *fiber.Ctx, err error) error {
	code := apperr.Code(err)
	msg := err.Error()
	if code == "INTERNAL" {
		msg = "internal error"
	}
	if errors.Is(err, apperr.ErrPackageRequired) {
		msg = "an active package is required to use messaging"
	}
	return c.Status(apperr.Status(err)).JSON(fiber.Map{"status": "error", "code": code, "message": msg})
}

func JSONValidationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status":  "error",
		"code":    apperr.Code(apperr.ErrInvalidArgument),
		"message": "validation failed",
		"errors":  FormatValidationErrors(err),
	})
}
