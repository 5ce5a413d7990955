package middleware

import (
	"errors"
	"log"

	"lms/apperror"
	"lms/config"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"status":  false,
		"message": "Validation failed!",
		"data":    errors,
		"errors":  errors,
	})
}

// HandleError writes err as an envelope. Business errors keep their status and message;
// anything else is a 500 whose raw message is only shown outside production.
func HandleError(c *fiber.Ctx, err error) error {
	if appErr, ok := apperror.As(err); ok {
		if appErr.Kind == apperror.KindValidation {
			return ValidationErrorResponse(c, appErr.Fields)
		}
		return JsonResponse(c, appErr.Status(), false, appErr.Message, nil)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return JsonResponse(c, fiberErr.Code, false, fiberErr.Message, nil)
	}

	utils.ReportError("API", err, map[string]interface{}{
		"method":     c.Method(),
		"path":       c.Path(),
		"request_id": c.Locals("requestId"),
	})

	message := "Internal server error!"
	if config.AppConfig == nil || !config.AppConfig.IsProduction() {
		message = err.Error()
	}
	return JsonResponse(c, fiber.StatusInternalServerError, false, message, nil)
}

// ErrorHandler is the fiber.Config ErrorHandler. It catches errors that escape handlers,
// including recovered panics.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}
	log.Printf("[API] %s %s: %v", c.Method(), c.Path(), err)
	return HandleError(c, err)
}

// RequestID reuses X-Request-ID from the client or generates one.
func RequestID(c *fiber.Ctx) error {
	id := c.Get(fiber.HeaderXRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals("requestId", id)
	c.Set(fiber.HeaderXRequestID, id)
	return c.Next()
}
