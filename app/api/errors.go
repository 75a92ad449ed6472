package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"docquery/types"
)

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrNotFound[T any](arg T, resource string) Error {
	return Error{
		Code:    fiber.StatusNotFound,
		Message: fmt.Sprintf("%s with %v not found", resource, arg),
	}
}

// ErrorHandler is the central fiber error handler. Pipeline taxonomy errors
// map onto HTTP statuses; anything unrecognized becomes a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiError Error
	if errors.As(err, &apiError) {
		return c.Status(apiError.Code).JSON(apiError)
	}
	var valError ValidationError
	if errors.As(err, &valError) {
		return c.Status(valError.Status).JSON(valError)
	}
	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		return c.Status(fiberError.Code).JSON(NewError(fiberError.Code, fiberError.Message))
	}

	apiError = NewError(taxonomyStatus(err), err.Error())
	return c.Status(apiError.Code).JSON(apiError)
}

func taxonomyStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrUnsupportedFormat):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, types.ErrInvalidChunkParams):
		return fiber.StatusBadRequest
	case errors.Is(err, types.ErrEmptyDocument), errors.Is(err, types.ErrEmptyIndex):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, types.ErrSourceUnavailable),
		errors.Is(err, types.ErrEmbeddingService),
		errors.Is(err, types.ErrReasoningService):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
