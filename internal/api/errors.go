package api

import (
	"errors"

	"granja-backend/internal/config"
	"granja-backend/internal/ledger"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ValidationError is returned when a request body fails its struct tags.
// Fields maps the JSON field name to a message for the form.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// FromLedger turns a stock ledger error into the HTTP error the client sees.
func FromLedger(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInvalidQuantity):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrItemNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, ledger.ErrVersionConflict),
		errors.Is(err, ledger.ErrLockNotObtained):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return err
}

// ErrorHandler writes every error as {"error": "..."}; validation errors add "fields".
// Anything that is not a known error type is logged and hidden behind a 500.
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  ve.Message,
				"fields": ve.Fields,
			})
		}

		err = FromLedger(err)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		config.LogError(logger, "api", "ErrorHandler", "unhandled error", logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error interno del servidor"})
	}
}
