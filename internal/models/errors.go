package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Flow-control sentinels used inside the allocation and moderation paths.
// They never leave the service boundary; handlers only ever see AppError.
var (
	// ErrRoomConflict marks a transient storage race (lost update or
	// duplicate room number). The allocator retries on it.
	ErrRoomConflict = errors.New("room state conflict")
	// ErrNotAMember is returned when an operation requires an active
	// membership that does not exist.
	ErrNotAMember = errors.New("no active membership")
	// ErrServerBusy is returned once the allocator's retry budget is spent.
	ErrServerBusy = errors.New("allocation retries exhausted")
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
	}
}

// NewNotAMemberError is used when an operation requires an active membership.
func NewNotAMemberError(roomID uint) *AppError {
	return &AppError{
		Code:    "NOT_A_MEMBER",
		Message: fmt.Sprintf("No active membership in room %d", roomID),
		Err:     ErrNotAMember,
	}
}

// NewServerBusyError signals that joins are contended and should be retried
// later. It is deliberately transient wording, never a denial.
func NewServerBusyError() *AppError {
	return &AppError{
		Code:    "SERVER_BUSY",
		Message: "Rooms are busy right now, please try again shortly",
		Err:     ErrServerBusy,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
		Err:     err,
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	if appErr, ok := err.(*AppError); ok {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
