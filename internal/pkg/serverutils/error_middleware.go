package serverutils

import (
	"github.com/gofiber/fiber/v2"

	"doc-chat-be/pkg/apperrors"
)

// ErrorHandlerMiddleware converts errors bubbling out of handlers into the
// standard response envelope. Typed application errors pick their own
// status code; everything else is a 500 with a generic message so internal
// details never leak to the client.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		if fiberErr, ok := err.(*fiber.Error); ok {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		status := apperrors.HTTPStatus(err)
		message := err.Error()
		if status == fiber.StatusInternalServerError {
			message = "internal server error"
		}
		return ctx.Status(status).JSON(ErrorResponse(status, message))
	}
}
