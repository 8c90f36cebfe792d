package handlers

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/agency-planner/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindExternal:
		return fiber.StatusBadGateway
	case apperr.KindTimeout:
		return fiber.StatusGatewayTimeout
	case apperr.KindAuthorization:
		return fiber.StatusUnauthorized
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err with the status for its kind. Internal errors
// are logged and reported without detail.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		slog.Error(err.Error(), "path", c.Path())
		return c.Status(status).JSON(fiber.Map{
			"error": "Something went wrong",
		})
	}
	body := fiber.Map{"error": err.Error()}
	if op := apperr.Op(err); op != "" {
		body["step"] = op
	}
	return c.Status(status).JSON(body)
}

// parseBody decodes the JSON body into out and checks its validate tags.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Validation("Unable to parse request body")
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.Validation("missing or invalid field %s", verrs[0].Field())
		}
		return apperr.Validation("invalid request")
	}
	return nil
}
