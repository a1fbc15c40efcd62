package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"
	"github.com/redis/go-redis/v9"

	"qserveu/config"
	"qserveu/handlers"
	"qserveu/monitoring"
	"qserveu/notify"
	"qserveu/security"
	"qserveu/services"
	"qserveu/store"
	"qserveu/utils"
)

func Start() error {
	cfg := config.LoadConfig()

	level := slog.LevelInfo
	if cfg.Environment == "development" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Shared remote store.
	st, err := store.New(cfg.StoreDSN, cfg.StoreTimeout, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleShutdown(cancel, logger)

	if cfg.Environment == "development" {
		if err := st.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	// Redis backs the per-office allocation lock and rate limiting; without
	// it the lock degrades to in-process scope.
	var (
		redisClient *redis.Client
		locker      services.OfficeLocker = services.NewLocalLocker()
	)
	if cfg.RedisURL != "" {
		redisClient, err = utils.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		locker = services.NewRedisLocker(redisClient, cfg.AllocLockTTL)
	} else {
		logger.Warn("no redis configured, allocation lock is process-local only")
	}

	// PubNub carries alerts to visitor devices when configured.
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId("qserveu-backend"))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	// Services.
	queueService := services.NewQueueService(st, locker, cfg, logger)
	authService := services.NewAuthService(st, cfg, logger)

	sinkFactory := func(studentID string) []notify.Sink {
		sinks := []notify.Sink{notify.NewLogSink(logger)}
		if pn != nil {
			sinks = append(sinks, notify.NewPubNubSink(pn, studentID, logger))
		}
		return sinks
	}
	pollers := notify.NewManager(ctx, queueService, sinkFactory, cfg.PollInterval, cfg.PollIdleLimit, logger)
	defer pollers.Shutdown()

	if cfg.EnableMetrics {
		go monitoring.NewMonitor(st, logger).Run(ctx)
	}

	// Handlers.
	authHandler := handlers.NewAuthHandler(authService, pollers)
	queueHandler := handlers.NewQueueHandler(queueService, pollers, utils.NewWifiDetector(), cfg)
	feedbackHandler := handlers.NewFeedbackHandler(queueService)
	officeHandler := handlers.NewOfficeHandler(queueService)
	rateLimiter := security.NewRateLimiter(redisClient)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Public endpoints
	e.POST("/api/auth/register", authHandler.Register)
	e.POST("/api/auth/login", authHandler.Login)

	// Authenticated endpoints
	api := e.Group("/api", security.JWTAuth(cfg.JWTSecret))
	api.PUT("/auth/profile", authHandler.UpdateProfile)
	api.GET("/offices", officeHandler.List)
	api.GET("/offices/:id/rating", officeHandler.Rating)
	api.POST("/queue", queueHandler.RequestTicket, rateLimiter.QueueRateLimit())
	api.GET("/queue/current", queueHandler.CurrentTicket)
	api.POST("/queue/:id/cancel", queueHandler.CancelTicket, rateLimiter.QueueRateLimit())
	api.GET("/feedback/pending", feedbackHandler.Pending)
	api.POST("/feedback", feedbackHandler.Submit, rateLimiter.QueueRateLimit())

	// Health check
	e.GET("/health", func(c echo.Context) error {
		if redisClient != nil {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	if cfg.EnableMetrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	// Serve until the shutdown signal lands, then drain.
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "err", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
	if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleShutdown cancels the root context on SIGINT/SIGTERM.
func handleShutdown(cancel context.CancelFunc, logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("shutdown signal received, cleaning up")
	cancel()
}
