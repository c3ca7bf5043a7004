package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/buddydiary/buddy-api/internal/pkg/result"
)

var validate = validator.New()

// parseAndValidate decodes the JSON body into dst and runs struct validation.
// Failures are input errors surfaced verbatim to the caller.
func parseAndValidate(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return result.WrapError(result.InvalidRequest, err)
	}
	if err := validate.Struct(dst); err != nil {
		return result.MessageError(result.InvalidInput, err.Error())
	}
	return nil
}
