package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"feira/internal/errs"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Success: true, Message: message, Data: data})
}

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden),
		errors.Is(err, errs.ErrForbiddenTransition),
		errors.Is(err, errs.ErrOwnershipMismatch):
		return fiber.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, errs.ErrInsufficientStock),
		errors.Is(err, errs.ErrUnavailable),
		errors.Is(err, errs.ErrAlreadyAssigned),
		errors.Is(err, errs.ErrInvalidState):
		return fiber.StatusBadRequest
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error returned by a handler or middleware as
// the envelope. Internal failures are logged and, outside development,
// answered without detail.
func ErrorHandler(logger *zap.Logger, development bool) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		status := statusOf(err)
		body := Response{Success: false, Message: err.Error(), Errors: errs.FieldsOf(err)}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			body.Message = fe.Message
		}
		if status == fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
			body.Message = "internal server error"
			if development {
				body.Errors = []string{err.Error()}
			}
		}
		return c.Status(status).JSON(body)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind parses the JSON body into dst and validates it.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return errs.Validation("invalid request body", "body: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return fmt.Errorf("validate request: %w", err)
		}
		fields := make([]string, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, fmt.Sprintf("%s: failed on the '%s' rule", fieldPath(fe), fe.Tag()))
		}
		return errs.Validation("validation failed", fields...)
	}
	return nil
}

// fieldPath drops the struct name from a validator namespace, so
// "createOrderRequest.items[0].quantity" becomes "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
