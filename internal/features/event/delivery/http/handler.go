package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clubtac-rating-backend/internal/common/middleware"
	"clubtac-rating-backend/internal/features/event/service"
	userservice "clubtac-rating-backend/internal/features/user/service"
)

// ResyncFunc — операция пересинхронизации статуса оплаты. Видимость Mini App
// снова в фокусе — это третий триггер той же операции после push и поллера.
type ResyncFunc func(c *gin.Context, eventID, userID int64)

type EventHandler struct {
	service service.EventService
	users   userservice.UserService
	resync  ResyncFunc
}

func NewEventHandler(service service.EventService, users userservice.UserService, resync ResyncFunc) *EventHandler {
	return &EventHandler{service: service, users: users, resync: resync}
}

func (h *EventHandler) RegisterRoutes(router *gin.RouterGroup) {
	events := router.Group("/events")
	{
		events.GET("/upcoming", h.upcoming)
		events.GET("/finished", h.finished)
		events.POST("/:id/register", h.register)
		events.GET("/:id/participant", h.participant)
	}
}

// @Summary Upcoming events
// @Description Events starting strictly after now, any status, soonest first.
// @Tags events
// @Produce json
// @Success 200 {array} models.Event
// @Router /events/upcoming [get]
func (h *EventHandler) upcoming(c *gin.Context) {
	events, err := h.service.Upcoming(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

// @Summary Finished events
// @Description Finished events that started before now, latest first.
// @Tags events
// @Produce json
// @Success 200 {array} models.Event
// @Router /events/finished [get]
func (h *EventHandler) finished(c *gin.Context) {
	events, err := h.service.Finished(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

type registerRequest struct {
	TelegramID int64 `json:"telegram_id" binding:"required"`
}

// @Summary Register for an event
// @Description Forwards the registration to the external payment workflow. While a registration is in flight for the same user and event, repeat calls are rejected.
// @Tags events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param request body registerRequest true "Registering user"
// @Success 200 {object} models.RegistrationResult
// @Failure 400 {object} middleware.ErrorResponse "Invalid input"
// @Failure 403 {object} middleware.ErrorResponse "telegram_id does not match the authenticated user"
// @Failure 404 {object} middleware.ErrorResponse "Event or user not found"
// @Failure 409 {object} middleware.ErrorResponse "Registration already in progress"
// @Failure 502 {object} middleware.ErrorResponse "Workflow failure or ambiguous reply, retry"
// @Router /events/{id}/register [post]
func (h *EventHandler) register(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID format"})
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Регистрировать можно только себя: telegram_id из тела сверяется
	// с аутентифицированным пользователем initData.
	if tgUser, ok := middleware.TelegramUser(c); ok && tgUser.ID != req.TelegramID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "telegram_id does not match authenticated user"})
		return
	}

	user, err := h.users.GetByTelegramID(c.Request.Context(), req.TelegramID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	result, err := h.service.Register(c.Request.Context(), eventID, user)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Participant payment status
// @Description Re-reads the participant row; the UI calls this on foreground visibility and after an ambiguous registration reply.
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Param telegram_id query int true "Telegram numeric ID"
// @Success 200 {object} models.ParticipantStatus
// @Failure 400 {object} middleware.ErrorResponse "Missing telegram_id"
// @Failure 403 {object} middleware.ErrorResponse "telegram_id does not match the authenticated user"
// @Failure 404 {object} middleware.ErrorResponse "User not found"
// @Router /events/{id}/participant [get]
func (h *EventHandler) participant(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID format"})
		return
	}

	telegramID, err := strconv.ParseInt(c.Query("telegram_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "telegram_id required"})
		return
	}

	if tgUser, ok := middleware.TelegramUser(c); ok && tgUser.ID != telegramID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "telegram_id does not match authenticated user"})
		return
	}

	user, err := h.users.GetByTelegramID(c.Request.Context(), telegramID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	if h.resync != nil {
		h.resync(c, eventID, user.ID)
	}

	status, err := h.service.ParticipantStatus(c.Request.Context(), eventID, user.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
