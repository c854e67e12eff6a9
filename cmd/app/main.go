package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"clubtac-rating-backend/internal/common/cache"
	"clubtac-rating-backend/internal/common/config"
	"clubtac-rating-backend/internal/common/logger"
	"clubtac-rating-backend/internal/common/middleware"
	eventhttp "clubtac-rating-backend/internal/features/event/delivery/http"
	eventpg "clubtac-rating-backend/internal/features/event/repository/postgres"
	eventservice "clubtac-rating-backend/internal/features/event/service"
	paymentsync "clubtac-rating-backend/internal/features/event/sync"
	statshttp "clubtac-rating-backend/internal/features/stats/delivery/http"
	statsmodels "clubtac-rating-backend/internal/features/stats/models"
	statspg "clubtac-rating-backend/internal/features/stats/repository/postgres"
	statsservice "clubtac-rating-backend/internal/features/stats/service"
	userhttp "clubtac-rating-backend/internal/features/user/delivery/http"
	userrepository "clubtac-rating-backend/internal/features/user/repository"
	userpg "clubtac-rating-backend/internal/features/user/repository/postgres"
	userservice "clubtac-rating-backend/internal/features/user/service"
	"clubtac-rating-backend/internal/platform/postgres"
	redisplatform "clubtac-rating-backend/internal/platform/redis"
	"clubtac-rating-backend/internal/platform/telegram"
	"clubtac-rating-backend/internal/platform/webhook"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init("clubtac-rating-backend", cfg.Debug)

	location, err := time.LoadLocation(cfg.Club.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Club.Timezone).Msg("Invalid club timezone")
	}

	postgresClient, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer postgresClient.Close()

	redisClient, err := redisplatform.Open(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	cacheService := cache.NewService(redisClient)

	// Репозитории
	userRepository := userpg.NewPostgresRepository(postgresClient.GetDB())
	statsRepository := statspg.NewPostgresRepository(postgresClient.GetDB())
	eventRepository := eventpg.NewPostgresRepository(postgresClient.GetDB())

	// Внешние коллабораторы
	registrationWorkflow := webhook.NewClient(cfg.Registration.WebhookURL, cfg.Registration.Timeout)
	botClient := telegram.NewClient(cfg.Telegram.BotToken)

	// Сервисы
	userSvc := userservice.NewUserService(userRepository)
	eventSvc := eventservice.NewEventService(eventRepository, registrationWorkflow)
	statsSvc := statsservice.NewStatsService(statsRepository, userRepository,
		&finishedEventSource{events: eventSvc}, cacheService, location)

	// Синхронизация статусов оплаты: push-подписка + страховочный поллер.
	syncer := paymentsync.New(eventRepository, redisClient,
		cfg.Registration.EventChannel, cfg.Registration.PollInterval).
		WithNotifier(botClient, telegramIDResolver(userRepository))
	syncer.Start(ctx)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", "init_data"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.TelegramInitData(cfg.Telegram.BotToken))

	userhttp.NewUserHandler(userSvc).RegisterRoutes(v1)
	statshttp.NewStatsHandler(statsSvc).RegisterRoutes(v1)
	eventhttp.NewEventHandler(eventSvc, userSvc, func(c *gin.Context, eventID, userID int64) {
		if err := syncer.Resync(c.Request.Context(), eventID, userID); err != nil {
			logger.Warn().Err(err).Int64("event_id", eventID).Msg("On-demand resync failed")
		}
	}).RegisterRoutes(v1)

	registerProbes(router, postgresClient, redisClient)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

// finishedEventSource адаптирует сервис событий к истории игр.
type finishedEventSource struct {
	events eventservice.EventService
}

func (s *finishedEventSource) FinishedEventSummaries(ctx context.Context) ([]statsmodels.EventSummary, error) {
	events, err := s.events.Finished(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]statsmodels.EventSummary, 0, len(events))
	for _, event := range events {
		summaries = append(summaries, statsmodels.EventSummary{
			ID:       event.ID,
			Type:     event.Type,
			Title:    event.Title,
			StartsAt: event.StartsAt,
		})
	}
	return summaries, nil
}

func telegramIDResolver(repo userrepository.UserRepository) paymentsync.TelegramIDResolver {
	return func(ctx context.Context, userID int64) (int64, bool) {
		user, err := repo.GetByID(ctx, userID)
		if err != nil {
			return 0, false
		}
		return user.TelegramID, true
	}
}

func registerProbes(router *gin.Engine, pg *postgres.Client, rdb *redisplatform.Client) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "clubtac-rating-backend",
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := pg.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "postgres unavailable",
				"details": err.Error(),
			})
			return
		}

		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "redis unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "clubtac-rating-backend",
		})
	})
}
