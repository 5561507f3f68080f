// Package apperrors содержит определения кодов ошибок.
package apperrors

import (
	"fmt"
	"net/http"
)

// Code - машинный код ошибки.
type Code string

// AppError представляет ошибку.
type AppError struct {
	Code    Code
	Message string
}

// Error реализует error.
func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus возвращает подходящий HTTP статус для кода ошибки.
func (e *AppError) HTTPStatus() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Коды ошибок
const (
	ErrBadSignature  Code = "BAD_SIGNATURE"
	ErrNotConfigured Code = "NOT_CONFIGURED"
	ErrNotFound      Code = "NOT_FOUND"
	ErrRunCompleted  Code = "RUN_COMPLETED"
	ErrExternalAPI   Code = "EXTERNAL_API"
	ErrInternalIssue Code = "INTERNAL_ISSUE"
)

// messages - человекочитаемые строки по коду.
var messages = map[Code]string{
	ErrBadSignature:  "webhook signature verification failed",
	ErrNotConfigured: "team has no repository configured",
	ErrNotFound:      "resource not found",
	ErrRunCompleted:  "workflow run already completed",
	ErrExternalAPI:   "external API call failed",
	ErrInternalIssue: "internal server issue, please try again",
}

// statusByCode - HTTP-статусы по коду.
var statusByCode = map[Code]int{
	ErrBadSignature:  http.StatusUnauthorized,
	ErrNotConfigured: http.StatusPreconditionFailed,
	ErrNotFound:      http.StatusNotFound,
	ErrRunCompleted:  http.StatusConflict,
	ErrExternalAPI:   http.StatusBadGateway,
	ErrInternalIssue: http.StatusInternalServerError,
}

// New создаёт AppError по коду.
func New(code Code) *AppError {
	return &AppError{Code: code, Message: messageFor(code)}
}

// FromCode возвращает сообщение по коду (без создания AppError).
func FromCode(code Code) string { return messageFor(code) }

func messageFor(code Code) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return messages[ErrInternalIssue]
}
