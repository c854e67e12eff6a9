package errors

import (
	"fmt"
	"time"
)

// ErrorCode представляет код ошибки
type ErrorCode string

const (
	// Общие ошибки
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeConflict   ErrorCode = "CONFLICT"
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"

	// Ошибки пользователей
	ErrCodeUserNotFound    ErrorCode = "USER_NOT_FOUND"
	ErrCodeInvalidUserData ErrorCode = "INVALID_USER_DATA"

	// Ошибки событий
	ErrCodeEventNotFound         ErrorCode = "EVENT_NOT_FOUND"
	ErrCodeEventNotOpen          ErrorCode = "EVENT_NOT_OPEN"
	ErrCodeRegistrationInFlight  ErrorCode = "REGISTRATION_IN_FLIGHT"
	ErrCodeRegistrationAmbiguous ErrorCode = "REGISTRATION_AMBIGUOUS"

	// Ошибки базы данных
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Ошибки кэша
	ErrCodeCacheError ErrorCode = "CACHE_ERROR"

	// Ошибки внешних API
	ErrCodeTelegramAPI ErrorCode = "TELEGRAM_API_ERROR"
	ErrCodeExternalAPI ErrorCode = "EXTERNAL_API_ERROR"
)

// AppError представляет типизированную ошибку приложения
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsNotFound проверяет, является ли ошибка ошибкой "не найдено"
func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound ||
		e.Code == ErrCodeUserNotFound ||
		e.Code == ErrCodeEventNotFound
}

// IsValidation проверяет, является ли ошибка ошибкой валидации
func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation || e.Code == ErrCodeInvalidUserData
}

// IsRetriable сообщает, имеет ли смысл повторить запрос позже.
// Ошибки бэкенда и внешних сервисов — временные, валидация — нет.
func (e *AppError) IsRetriable() bool {
	switch e.Code {
	case ErrCodeDatabaseError, ErrCodeCacheError, ErrCodeExternalAPI,
		ErrCodeTelegramAPI, ErrCodeRegistrationAmbiguous, ErrCodeInternal:
		return true
	}
	return false
}

// WithDetail добавляет детальную информацию к ошибке
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID добавляет ID запроса к ошибке
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// New создает новую ошибку приложения
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap оборачивает существующую ошибку
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf оборачивает существующую ошибку с форматированием
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Конструкторы для часто используемых ошибок

// NewValidationError создает ошибку валидации
func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// NewUserNotFoundError создает ошибку "пользователь не найден"
func NewUserNotFoundError(ident interface{}) *AppError {
	return New(ErrCodeUserNotFound, "User not found").
		WithDetail("identity", ident)
}

// NewEventNotFoundError создает ошибку "событие не найдено"
func NewEventNotFoundError(eventID int64) *AppError {
	return New(ErrCodeEventNotFound, fmt.Sprintf("Event not found: %d", eventID)).
		WithDetail("event_id", eventID)
}

// NewDatabaseError создает ошибку базы данных
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// NewExternalAPIError создает ошибку внешнего сервиса
func NewExternalAPIError(service string, err error) *AppError {
	return Wrap(err, ErrCodeExternalAPI, fmt.Sprintf("External service call failed: %s", service)).
		WithDetail("service", service)
}

// AsAppError приводит ошибку к AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil {
		appErr, _ = err.(*AppError)
	}
	return appErr, appErr != nil
}
