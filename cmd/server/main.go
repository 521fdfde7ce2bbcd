// Package main runs the event-planning HTTP server with WebSocket chat and
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gatherup/backend/config"
	"github.com/gatherup/backend/internal/attendance"
	"github.com/gatherup/backend/internal/auth"
	"github.com/gatherup/backend/internal/chat"
	"github.com/gatherup/backend/internal/events"
	"github.com/gatherup/backend/internal/middleware"
	"github.com/gatherup/backend/internal/users"
	"github.com/gatherup/backend/pkg/database"
	"github.com/gatherup/backend/pkg/redis"
	"github.com/gatherup/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Cross-instance chat bridge is optional: without Redis each instance
	// broadcasts to its own connections only.
	var pubsub chat.PubSub
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		pubsub = chat.NewRedisPubSub(rdb.Client, logger)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	registry := chat.NewRegistry(logger, pubsub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Users
	userRepo := users.NewRepository(pool)
	userHandler := users.NewHandler(userRepo, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, logger)

	// Attendance
	attendanceRepo := attendance.NewRepository(pool)
	attendanceHandler := attendance.NewHandler(attendanceRepo, eventRepo, logger)

	// Chat
	chatRepo := chat.NewRepository(pool)
	chatHandler := chat.NewHandler(chatRepo, registry, logger)

	verify := func(token string) (chat.Identity, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return chat.Identity{}, err
		}
		return chat.Identity{UserID: claims.UserID, Email: claims.Email}, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Public profiles
	router.GET("/users/:id", userHandler.GetByID)

	// Protected API (JWT via Authorization header or access_token cookie)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/me", userHandler.Me)
		api.PATCH("/me", userHandler.Update)

		api.GET("/events", eventHandler.List)
		api.POST("/events", eventHandler.Create)
		api.GET("/events/:id", eventHandler.GetByID)
		api.PUT("/events/:id", eventHandler.Update)
		api.DELETE("/events/:id", eventHandler.Delete)

		api.POST("/attend", attendanceHandler.Toggle)
		api.POST("/events/:id/invite", attendanceHandler.Invite)
		api.GET("/events/:id/attendees", attendanceHandler.ListByEvent)

		api.GET("/events/:id/messages", chatHandler.History)
		api.GET("/events/:id/presence", chatHandler.Presence)
	}

	// WebSocket chat (credential via cookie or token query param)
	router.GET("/events/:id/chat", chat.ServeWs(registry, chatRepo, verify, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	registry.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
