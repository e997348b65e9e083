package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homelink-backend/internal/config"
	"homelink-backend/internal/database"
	authHandler "homelink-backend/internal/handler/http/auth"
	callHandler "homelink-backend/internal/handler/http/call"
	chatHandler "homelink-backend/internal/handler/http/chat"
	userHandler "homelink-backend/internal/handler/http/user"
	"homelink-backend/internal/handler/ws"
	"homelink-backend/internal/middleware"
	"homelink-backend/internal/repository/postgres"
	redisrepo "homelink-backend/internal/repository/redis"
	authService "homelink-backend/internal/service/auth"
	callService "homelink-backend/internal/service/call"
	chatService "homelink-backend/internal/service/chat"
	userService "homelink-backend/internal/service/user"
	"homelink-backend/pkg/constants"
	"homelink-backend/pkg/env"
	"homelink-backend/pkg/jwt"
	"homelink-backend/pkg/logger"
	"homelink-backend/pkg/metrics"
)

func main() {
	ctx := context.Background()

	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. Stores
	db, err := database.NewPostgres(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to postgres", zap.String("host", cfg.Database.Host))

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("failed to run schema migration", zap.Error(err))
	}

	redisClient, err := database.NewRedis(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("connected to redis", zap.String("host", cfg.Redis.Host))

	// 3. Repositories
	userRepo := postgres.NewUserRepository(db.Pool)
	inviteRepo := postgres.NewInvitationCodeRepository(db.Pool)
	chatRepo := postgres.NewChatRepository(db.Pool)
	messageRepo := postgres.NewMessageRepository(db.Pool)
	callRepo := postgres.NewCallRepository(db.Pool)
	presenceRepo := redisrepo.NewPresenceRepository(redisClient)

	if err := inviteRepo.EnsureSeed(ctx, cfg.Auth.InviteCode); err != nil {
		logger.Fatal("failed to seed invitation code", zap.Error(err))
	}

	// 4. Shared infrastructure
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)
	m := metrics.New(cfg.Server.ServiceName)
	registry := ws.NewRegistry()
	router := ws.NewRouter(registry, m)

	// 5. Services; the ws router is their notification port
	authSvc := authService.NewService(userRepo, inviteRepo, jwtManager)
	userSvc := userService.NewService(userRepo, presenceRepo)
	callSvc := callService.NewService(callRepo, userRepo, router, m, cfg.Call.RingTimeout)
	defer callSvc.Shutdown()
	chatSvc := chatService.NewService(chatRepo, messageRepo, userRepo, router, m)

	// 6. Handlers
	gateway := ws.NewGateway(registry, router, authSvc, callSvc, chatSvc, presenceRepo, m, ws.GatewayConfig{
		SendQueueSize:  cfg.WebSocket.SendQueueSize,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		MaxConnections: cfg.WebSocket.MaxConnections,
	})
	authHdlr := authHandler.NewHandler(authSvc)
	userHdlr := userHandler.NewHandler(userSvc)
	chatHdlr := chatHandler.NewHandler(chatSvc)
	callHdlr := callHandler.NewHandler(callSvc)

	// 7. Routes
	engine := gin.New()
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.Prometheus(m))
	engine.Use(middleware.CORS(env.GetStringSlice("CORS_ALLOWED_ORIGINS")))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.Server.ServiceName,
			"time":    time.Now().UTC(),
		})
	})
	engine.GET("/metrics", middleware.MetricsHandler())
	engine.GET("/ws", gateway.HandleWS)

	v1 := engine.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHdlr.Register)
			auth.POST("/login", authHdlr.Login)
			auth.POST("/refresh", authHdlr.Refresh)

			authenticated := auth.Group("")
			authenticated.Use(middleware.Auth(jwtManager))
			{
				authenticated.POST("/logout", authHdlr.Logout)
			}
		}

		users := v1.Group("/users")
		users.Use(middleware.Auth(jwtManager))
		{
			users.GET("", userHdlr.List)
			users.GET("/me", userHdlr.Me)
			users.PUT("/me", userHdlr.Update)
			users.GET("/:id", userHdlr.Get)
		}

		chats := v1.Group("/chats")
		chats.Use(middleware.Auth(jwtManager))
		{
			chats.GET("", chatHdlr.List)
			chats.POST("/private", chatHdlr.CreatePrivate)
			chats.POST("/group", chatHdlr.CreateGroup)
			chats.DELETE("/:id", chatHdlr.Delete)
			chats.GET("/:id/messages", chatHdlr.Messages)
			chats.POST("/:id/messages", chatHdlr.SendMessage)
			chats.POST("/:id/read", chatHdlr.MarkRead)
		}

		calls := v1.Group("/calls")
		calls.Use(middleware.Auth(jwtManager))
		{
			calls.POST("", callHdlr.Initiate)
			calls.GET("", callHdlr.History)
			calls.GET("/active", callHdlr.Active)
			calls.GET("/:id", callHdlr.Get)
			calls.POST("/:id/respond", callHdlr.Respond)
			calls.POST("/:id/end", callHdlr.End)
		}
	}

	// 8. Serve
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
