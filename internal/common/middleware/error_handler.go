package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clubtac-rating-backend/internal/common/errors"
	"clubtac-rating-backend/internal/common/logger"
)

// ErrorHandler перехватывает паники и ошибки, накопленные обработчиками,
// и отдаёт их клиенту в едином формате.
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := getRequestID(c)

		logger.Error().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithRequestID(requestID)

		sendErrorResponse(c, appErr)
	})
}

// RequestID middleware для добавления ID запроса
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
	Path      string           `json:"path,omitempty"`
}

func sendErrorResponse(c *gin.Context, appErr *errors.AppError) {
	requestID := getRequestID(c)
	appErr.WithRequestID(requestID)

	response := ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now(),
		RequestID: requestID,
		Path:      c.Request.URL.Path,
	}

	logAppError(c, appErr)
	c.JSON(httpStatusFor(appErr), response)
}

// HandleError переводит ошибку сервиса в HTTP-ответ. Обработчики зовут её
// вместо самостоятельного маппинга статусов.
func HandleError(c *gin.Context, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		sendErrorResponse(c, appErr)
		return
	}
	sendErrorResponse(c, errors.Wrap(err, errors.ErrCodeInternal, "Unexpected error"))
}

func httpStatusFor(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation, errors.ErrCodeInvalidUserData, errors.ErrCodeBadRequest:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeUserNotFound, errors.ErrCodeEventNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConflict, errors.ErrCodeRegistrationInFlight:
		return http.StatusConflict
	case errors.ErrCodeEventNotOpen:
		return http.StatusGone
	case errors.ErrCodeDatabaseError:
		return http.StatusInternalServerError
	case errors.ErrCodeCacheError:
		return http.StatusServiceUnavailable
	case errors.ErrCodeTelegramAPI, errors.ErrCodeExternalAPI, errors.ErrCodeRegistrationAmbiguous:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func logAppError(c *gin.Context, appErr *errors.AppError) {
	ev := logger.Error()
	switch {
	case appErr.IsValidation(), appErr.IsNotFound():
		ev = logger.Info()
	case appErr.Code == errors.ErrCodeRegistrationInFlight:
		ev = logger.Warn()
	}

	ev = ev.
		Str("request_id", getRequestID(c)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("error_code", string(appErr.Code)).
		Str("error_message", appErr.Message)

	if appErr.Cause != nil {
		ev = ev.Err(appErr.Cause)
	}

	ev.Msg("Request failed")
}

func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return "unknown"
}
