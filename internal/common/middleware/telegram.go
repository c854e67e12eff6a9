package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"clubtac-rating-backend/internal/common/logger"
)

const userContextKey = "telegram_user"

// TelegramInitData проверяет подпись init_data из заголовка запроса и кладёт
// распарсенного пользователя Telegram в контекст. Mini App передаёт строку
// initData как есть, сервер валидирует её токеном бота.
func TelegramInitData(botToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		initDataQuery := c.GetHeader("init_data")
		if initDataQuery == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Telegram Init Data required"})
			return
		}

		// Срок жизни initData не ограничиваем: Mini App может жить в фоне
		// дольше любого разумного лимита.
		expIn := time.Duration(0)

		if err := initdata.Validate(initDataQuery, botToken, expIn); err != nil {
			logger.Debug().Err(err).Msg("init data validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": fmt.Sprintf("Invalid init data: %v", err)})
			return
		}

		parsedData, err := initdata.Parse(initDataQuery)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to parse init data: %v", err)})
			return
		}

		c.Set(userContextKey, parsedData.User)
		c.Next()
	}
}

// TelegramUser достаёт пользователя Telegram, положенного TelegramInitData.
func TelegramUser(c *gin.Context) (initdata.User, bool) {
	v, exists := c.Get(userContextKey)
	if !exists {
		return initdata.User{}, false
	}
	u, ok := v.(initdata.User)
	return u, ok
}
