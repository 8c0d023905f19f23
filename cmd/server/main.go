// Package main 是服务端的入口点
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"chatbuddy/internal/cache"
	"chatbuddy/internal/config"
	"chatbuddy/internal/database"
	"chatbuddy/internal/handler"
	"chatbuddy/internal/llm"
	"chatbuddy/internal/repository"
	"chatbuddy/internal/service"
	"chatbuddy/internal/websocket"
	"chatbuddy/pkg/jwt"
	"chatbuddy/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("chatbuddy: %v", err)
	}
}

func run() error {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 初始化日志
	lg, err := logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// 初始化数据库
	db, err := database.Open(cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	lg.Info("database ready", "driver", cfg.Database.Driver)

	// 初始化缓存，未启用 Redis 时为空实现
	store, err := cache.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	defer store.Close()

	// 初始化 JWT 服务
	jwtService := jwt.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.AccessExpire,
		cfg.JWT.RefreshExpire,
	)

	// 初始化大模型客户端
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := llm.NewProvider(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("init llm provider: %w", err)
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}
	llmClient := llm.NewClient(provider, cfg.LLM.Model,
		llm.WithTimeout(cfg.LLM.RequestTimeout),
		llm.WithLogger(lg.With("component", "llm")),
	)
	lg.Info("llm provider ready", "provider", provider.Name(), "model", cfg.LLM.Model)

	// 初始化 Repository 层
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// 初始化 Service 层
	authService := service.NewAuthService(userRepo, store, jwtService)
	userService := service.NewUserService(userRepo)
	sessionService := service.NewSessionService(sessionRepo)
	chatService := service.NewChatService(sessionRepo, messageRepo, llmClient)
	chatService.SetLogger(lg.With("component", "chat"))

	// 初始化 WebSocket Hub，一轮对话完成后推送给用户的其他连接
	wsHub := websocket.NewHub(lg.With("component", "websocket"))
	chatService.SetNotifier(wsHub)
	go wsHub.Run(ctx)

	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	router := handler.NewRouter(handler.RouterDeps{
		Logger:    lg,
		JWT:       jwtService,
		Cache:     store,
		CORS:      cfg.Server.CORS,
		RateLimit: cfg.RateLimit,
		Auth:      handler.NewAuthHandler(authService),
		User:      handler.NewUserHandler(userService),
		Session:   handler.NewSessionHandler(sessionService),
		Chat:      handler.NewChatHandler(chatService),
		Health:    handler.NewHealthHandler(db, store),
	})
	websocket.NewHandler(wsHub, chatService, jwtService, store, cfg.Server.CORS, lg).RegisterRoutes(router)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(lg.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server starting", "addr", addr, "mode", cfg.Server.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 优雅关闭
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	lg.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	lg.Info("server exited")
	return nil
}
