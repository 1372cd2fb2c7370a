package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorMapping maps a sentinel error (matched with errors.Is) to a status code.
type ErrorMapping struct {
	Err    error
	Status int
}

// ErrorHandlerMiddleware turns errors returned by later handlers into a
// BaseResponse. Unmapped errors become a 500 with a generic message.
func ErrorHandlerMiddleware(mappings ...ErrorMapping) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code, body := resolve(err, mappings)
		return ctx.Status(code).JSON(body)
	}
}

func resolve(err error, mappings []ErrorMapping) (int, *BaseResponse[any]) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		res := ErrorResponse(fiber.StatusBadRequest, "Invalid request")
		res.Errors = validationErr.Fields
		return fiber.StatusBadRequest, res
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, ErrorResponse(fiberErr.Code, fiberErr.Message)
	}

	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			return m.Status, ErrorResponse(m.Status, err.Error())
		}
	}

	return fiber.StatusInternalServerError, ErrorResponse(fiber.StatusInternalServerError, "Internal server error")
}
