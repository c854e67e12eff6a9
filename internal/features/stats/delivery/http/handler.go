package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clubtac-rating-backend/internal/common/middleware"
	"clubtac-rating-backend/internal/features/stats/service"
)

type StatsHandler struct {
	service service.StatsService
}

func NewStatsHandler(service service.StatsService) *StatsHandler {
	return &StatsHandler{service: service}
}

func (h *StatsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/user/stats", h.getPlayerStats)
	router.GET("/players", h.getPlayerRankings)
	router.GET("/teams", h.getTeamRankings)
	router.GET("/games", h.getGameHistory)
}

// @Summary Get player statistics profile
// @Description Resolve a user by telegram_id or username and return their ranking row, recent games (newest first, up to 10) and best-partner leaderboard (top 3, at least 3 shared games).
// @Tags stats
// @Produce json
// @Param telegram_id query int false "Telegram numeric ID"
// @Param username query string false "Display name"
// @Success 200 {object} models.PlayerStats
// @Failure 400 {object} middleware.ErrorResponse "Neither telegram_id nor username supplied"
// @Failure 404 {object} middleware.ErrorResponse "No matching user"
// @Router /user/stats [get]
func (h *StatsHandler) getPlayerStats(c *gin.Context) {
	var telegramID int64
	if raw := c.Query("telegram_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid telegram_id format"})
			return
		}
		telegramID = parsed
	}
	username := c.Query("username")

	if telegramID == 0 && username == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "telegram_id or username required"})
		return
	}

	stats, err := h.service.GetPlayerStats(c.Request.Context(), telegramID, username)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary Player leaderboard
// @Tags stats
// @Produce json
// @Success 200 {array} models.PlayerRanking
// @Router /players [get]
func (h *StatsHandler) getPlayerRankings(c *gin.Context) {
	rankings, err := h.service.PlayerRankings(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rankings)
}

// @Summary Team leaderboard
// @Tags stats
// @Produce json
// @Success 200 {array} models.TeamRanking
// @Router /teams [get]
func (h *StatsHandler) getTeamRankings(c *gin.Context) {
	teams, err := h.service.TeamRankings(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, teams)
}

// @Summary Game history grouped by date
// @Description All games newest first, grouped by the club's calendar day, with the finished event sharing that day attached when present.
// @Tags stats
// @Produce json
// @Success 200 {object} models.GameHistory
// @Router /games [get]
func (h *StatsHandler) getGameHistory(c *gin.Context) {
	history, err := h.service.GameHistory(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}
