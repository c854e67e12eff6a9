package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clubtac-rating-backend/internal/common/middleware"
	"clubtac-rating-backend/internal/features/user/models"
	"clubtac-rating-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/telegram", h.authenticate)
	}
}

// @Summary Authenticate Telegram user
// @Description Resolve a user by Telegram identity: returns the existing record or creates one on first login.
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.AuthRequest true "Telegram identity"
// @Success 200 {object} models.AuthResponse "Existing user"
// @Success 201 {object} models.AuthResponse "Newly created user"
// @Failure 400 {object} middleware.ErrorResponse "telegram_id or first_name missing"
// @Failure 500 {object} middleware.ErrorResponse "Backend failure"
// @Router /auth/telegram [post]
func (h *UserHandler) authenticate(c *gin.Context) {
	var req models.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, created, err := h.service.Authenticate(c.Request.Context(), req)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	c.JSON(status, models.AuthResponse{User: user})
}
