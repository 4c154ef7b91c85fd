package utils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/traits/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// ServiceErrorResponse maps a coordinator error to its status and error type.
// Partial writes additionally report whether the stores were left inconsistent.
func ServiceErrorResponse(c *fiber.Ctx, err error) error {
	status := types.StatusCode(err)
	message := err.Error()

	var ce *types.CustomError
	if errors.As(err, &ce) {
		message = ce.Message
	}

	var consistency *types.ConsistencyError
	if errors.As(err, &consistency) {
		return c.Status(status).JSON(fiber.Map{
			"status":    status,
			"message":   message,
			"ok":        false,
			"degraded":  consistency.Degraded(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
			"type":      types.TypeOf(err),
		})
	}

	return ErrorResponse(c, message, status, types.TypeOf(err))
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}

// MutationSuccessResponse sends a success response for mutations, naming the affected key
func MutationSuccessResponse(c *fiber.Ctx, status int, key string) error {
	return c.Status(status).JSON(fiber.Map{
		"message":   "Success",
		"ok":        true,
		"key":       key,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
	Degraded  bool   `json:"degraded,omitempty"`
}

// SuccessResponseStruct defines the schema for mutation success responses
type SuccessResponseStruct struct {
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Key       string `json:"key"`
	Timestamp string `json:"timestamp"`
}
