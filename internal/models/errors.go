package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes. Each maps to exactly one HTTP status via StatusFor.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInvalidLogin = "INVALID_LOGIN"
	CodeNotFound     = "NOT_FOUND"
	CodeForbidden    = "FORBIDDEN"
	CodeBadRequest   = "BAD_REQUEST"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every error reply. Message is a string, or a
// list of strings for multi-field validation failures.
type ErrorResponse struct {
	Message any    `json:"message"`
	Code    string `json:"code,omitempty"`
}

// AppError represents a classified application error.
type AppError struct {
	Code     string
	Message  string
	Messages []string
	Err      error
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
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "Unauthorized access"
	}
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func NewInvalidLoginError() *AppError {
	return &AppError{Code: CodeInvalidLogin, Message: "Invalid email or password"}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	msg := "Data not found"
	if resource != "" {
		msg = fmt.Sprintf("%s with ID %v not found", resource, id)
	}
	return &AppError{Code: CodeNotFound, Message: msg}
}

func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "Forbidden"
	}
	return &AppError{Code: CodeForbidden, Message: message}
}

func NewBadRequestError(message string) *AppError {
	if message == "" {
		message = "Bad request"
	}
	return &AppError{Code: CodeBadRequest, Message: message}
}

// NewValidationError aggregates one or more human readable field messages.
func NewValidationError(messages ...string) *AppError {
	e := &AppError{Code: CodeValidation, Messages: messages}
	if len(messages) > 0 {
		e.Message = messages[0]
	} else {
		e.Message = "Validation failed"
	}
	return e
}

func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal Server Error", Err: err}
}

// IsCode reports whether err is an AppError carrying code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusFor maps an error code onto its HTTP status.
func StatusFor(code string) int {
	switch code {
	case CodeUnauthorized, CodeInvalidLogin:
		return fiber.StatusUnauthorized
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeBadRequest, CodeValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError writes the standardized error body for err. Errors that are
// not AppErrors are reported as internal errors without leaking their text.
func RespondWithError(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Message: fiberErr.Message})
		}
		appErr = NewInternalError(err)
	}

	resp := ErrorResponse{Message: appErr.Message, Code: appErr.Code}
	if appErr.Code == CodeInternal {
		resp.Message = "Internal Server Error"
	}
	if len(appErr.Messages) > 1 {
		resp.Message = appErr.Messages
	}
	return c.Status(StatusFor(appErr.Code)).JSON(resp)
}
