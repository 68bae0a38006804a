package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resort-booking-demo/backend/internal/api"
	"resort-booking-demo/backend/internal/events"
	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/internal/repository"
	"resort-booking-demo/backend/internal/service"
	"resort-booking-demo/backend/internal/ws"
	"resort-booking-demo/backend/pkg/config"
	"resort-booking-demo/backend/pkg/errors"
	"resort-booking-demo/backend/pkg/jwt"
	"resort-booking-demo/backend/pkg/logger"
	"resort-booking-demo/backend/pkg/middleware"
	"resort-booking-demo/backend/shared/observability"
	"resort-booking-demo/backend/shared/redis"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	// Missing .env just means the process environment is authoritative.
	godotenv.Load()

	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"
	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting chat service", "env", cfg.Server.Env, "version", os.Getenv("APP_VERSION"))

	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Message{}); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages(conversation_id, created_at)").Error; err != nil {
		log.LogError(err, "Failed to create message index", "index", "idx_messages_conversation_created")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_conversations_last_message_at ON conversations(last_message_at)").Error; err != nil {
		log.LogError(err, "Failed to create conversation index", "index", "idx_conversations_last_message_at")
	}

	shutdownTracing := observability.SetupTracing("chat-service")
	defer shutdownTracing()
	if metricsAddr := os.Getenv("METRICS_ADDR"); metricsAddr != "" {
		observability.SetupPrometheusMetrics(metricsAddr)
	}

	var unread service.UnreadCache
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient()
		if err := redisClient.Ping(context.Background()); err != nil {
			log.LogError(err, "Redis unavailable, unread totals served from the database")
			redisClient.Close()
			redisClient = nil
		} else {
			unread = redisClient
		}
	}

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)

	bus := events.NewBroadcaster(log)
	defer bus.Close()

	conversationRepo := repository.NewGormConversationRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)

	chatService := service.NewChatService(conversationRepo, messageRepo, bus, unread, service.ChatServiceOptions{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		HistoryLimit:     cfg.Chat.HistoryLimit,
		ListLimit:        cfg.Chat.MaxConversationsPage,
		DetailCacheTTL:   cfg.Cache.TTL,
	}, log)
	userService := service.NewUserService(db)
	notifier := service.NewNotifier(bus, log)

	hub := ws.NewHub(chatService, bus, log, ws.HubOptions{
		WriteWait:       cfg.Chat.WriteWait,
		PongWait:        cfg.Chat.PongWait,
		MaxMessageBytes: cfg.Chat.MaxSocketMessageBytes,
	})
	go hub.Run()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(log))
	engine.Use(errors.ErrorHandler())

	limiterOpts := middleware.DefaultRateLimiterOptions()
	limiterOpts.Limit = rate.Limit(cfg.Security.RateLimit)
	limiterOpts.Burst = cfg.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(log, limiterOpts)
	engine.Use(rateLimiter.Middleware())

	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		log.LogError(err, "Failed to set trusted proxies")
	}

	engine.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok"}
		if err := config.TestConnection(db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()); err != nil {
				status["redis"] = "unavailable"
			}
		}
		c.JSON(http.StatusOK, status)
	})

	authMW := middleware.JWTAuthMiddleware(jwtService, log)
	adminMW := middleware.RequireRole(jwt.RoleAdmin)

	api.NewAuthHandler(userService, jwtService, log).RegisterRoutes(engine, authMW)
	api.NewChatController(chatService).RegisterRoutes(engine, authMW)
	api.NewAdminChatController(chatService).RegisterRoutes(engine, authMW, adminMW)
	api.NewNotifyController(notifier).RegisterRoutes(engine, authMW, adminMW)

	engine.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(hub, jwtService, c)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	if redisClient != nil {
		redisClient.Close()
	}

	log.Info("Server exited gracefully")
}
