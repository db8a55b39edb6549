package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/ozidan13/codehub/internal/services"
	"github.com/rs/zerolog"
)

var notFoundErrors = []error{
	services.ErrNotFound,
	services.ErrPlatformNotFound,
	services.ErrMentorNotFound,
	services.ErrRecordedNotFound,
	services.ErrBookingNotFound,
	services.ErrTransactionNotFound,
	services.ErrWalletNotFound,
	services.ErrSlotNotFound,
}

func errorBody(code, message string) fiber.Map {
	return fiber.Map{"error": fiber.Map{"code": code, "message": message}}
}

// writeError maps service errors to the HTTP error body. Unknown errors are
// logged and reported as InternalError.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	var appErr *services.AppError
	if !errors.As(err, &appErr) {
		requestID, _ := c.Locals("request_id").(string)
		log.Error().Err(err).Str("request_id", requestID).Str("path", c.Path()).Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody("InternalError", "Internal server error"))
	}

	status := fiber.StatusBadRequest
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrStorageUnavailable):
		status = fiber.StatusServiceUnavailable
	default:
		for _, target := range notFoundErrors {
			if errors.Is(err, target) {
				status = fiber.StatusNotFound
				break
			}
		}
	}
	return c.Status(status).JSON(errorBody(appErr.Code, appErr.Message))
}
