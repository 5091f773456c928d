package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/BayRex1/bayrex-apk/internal/blob"
	"github.com/BayRex1/bayrex-apk/internal/session"
	"github.com/BayRex1/bayrex-apk/internal/store"
)

var validate = validator.New()

// ErrorHandler turns every error escaping a handler into the
// {success:false, error} envelope. Details of unexpected errors are only
// exposed outside production.
func ErrorHandler(log logrus.FieldLogger, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg := classify(err)

		body := fiber.Map{
			"success": false,
			"error":   msg,
		}
		if code == fiber.StatusInternalServerError {
			log.WithError(err).WithField("path", c.Path()).Error("Request failed")
			if !production {
				body["message"] = err.Error()
			}
		}
		if errors.Is(err, session.ErrTOTPRequired) {
			body["requires_2fa"] = true
		}
		return c.Status(code).JSON(body)
	}
}

func classify(err error) (int, string) {
	var (
		fe  *fiber.Error
		ve  *store.ValidationError
		vde validator.ValidationErrors
	)
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest, ve.Message
	case errors.As(err, &vde):
		return fiber.StatusBadRequest, vde[0].Field() + " is invalid"
	case errors.Is(err, blob.ErrUnsupportedType),
		errors.Is(err, blob.ErrTooLarge),
		errors.Is(err, blob.ErrUnexpectedFile),
		errors.Is(err, blob.ErrTooManyFiles),
		errors.Is(err, blob.ErrInvalidName):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrUnauthorized),
		errors.Is(err, session.ErrBadLogin),
		errors.Is(err, session.ErrTOTPRequired):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, blob.ErrNotFound):
		return fiber.StatusNotFound, "file not found"
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	}
	return fiber.StatusInternalServerError, "Internal server error"
}
