package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest runs struct tag validation and flattens failures into one
// 400 error message.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		msgs := make([]string, len(fieldErrors))
		for i, fe := range fieldErrors {
			msgs[i] = fmt.Sprintf("field '%s' failed on '%s'", fe.Field(), fe.Tag())
		}
		return fiber.NewError(fiber.StatusBadRequest, strings.Join(msgs, "; "))
	}
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}
