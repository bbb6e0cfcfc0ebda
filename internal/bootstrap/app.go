package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/Index24/live-docs/internal/handler/http"
	wsHandler "github.com/Index24/live-docs/internal/handler/websocket"
	"github.com/Index24/live-docs/internal/hub"
	"github.com/Index24/live-docs/internal/infra/notify"
	gormpersistence "github.com/Index24/live-docs/internal/infra/persistence/gorm"
	"github.com/Index24/live-docs/internal/infra/setup"
	redisstate "github.com/Index24/live-docs/internal/infra/state/redis"
	"github.com/Index24/live-docs/internal/middleware"
	"github.com/Index24/live-docs/internal/service"
	"github.com/Index24/live-docs/internal/worker"
)

// App 结构体包含应用的所有组件和配置
type App struct {
	Config       *Config
	Log          *logrus.Logger
	DB           *gorm.DB
	RedisClient  *redis.Client
	AsynqClient  *asynq.Client
	AsynqServer  *worker.WorkerServer
	Hub          *hub.Hub
	Revalidator  *redisstate.RedisRevalidator
	ShareLimiter *middleware.UserThrottle
	HttpServer   *http.Server

	cancel context.CancelFunc
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		// logrus 尚未配置
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := NewLogger(cfg)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.GetLevel())
	log.Infof("Logger initialized (Level: %s, Format: %T)", log.GetLevel().String(), log.Formatter)

	// 3. 初始化基础设施
	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database initialized and migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	log.Info("Infrastructure initialized successfully")

	// 4. 初始化 Repositories 和信号通道
	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	notificationRepo := gormpersistence.NewGormNotificationRepository(db)
	revalidator := redisstate.NewRedisRevalidator(redisClient, cfg.KeyPrefix)
	notifier := notify.NewAsynqNotifier(asynqClient)

	// 5. 初始化 Services
	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	documentService := service.NewDocumentService(roomRepo, notifier, revalidator)
	inboxService := service.NewInboxService(notificationRepo, revalidator)
	log.Info("Services initialized")

	// 6. Hub 和 Worker
	hubInstance := hub.NewHub()
	workerServer := worker.NewWorkerServer(redisClientOpt, inboxService, log)

	// 7. Handlers 和路由
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	shareLimiter := middleware.NewUserThrottle(cfg.SharePerMinute, 5, 10*time.Minute)
	router := NewRouter(log, Routes{
		Auth:         httpHandler.NewAuthHandler(authService),
		Documents:    httpHandler.NewDocumentHandler(documentService, authService),
		Inbox:        httpHandler.NewInboxHandler(inboxService),
		WebSocket:    wsHandler.NewWebSocketHandler(hubInstance, documentService, cfg.CORSAllowedOrigin),
		RequireAuth:  middleware.Auth(cfg.JWTSecret),
		AuthLimit:    middleware.RateLimit(redisClient, cfg.KeyPrefix, cfg.RateLimitMax, cfg.RateLimitWindow),
		ShareLimit:   middleware.Throttle(shareLimiter),
		AllowOrigins: []string{cfg.CORSAllowedOrigin},
	})
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &App{
		Config:       cfg,
		Log:          log,
		DB:           db,
		RedisClient:  redisClient,
		AsynqClient:  asynqClient,
		AsynqServer:  workerServer,
		Hub:          hubInstance,
		Revalidator:  revalidator,
		ShareLimiter: shareLimiter,
		HttpServer:   httpServer,
	}, nil
}

// Start 启动应用的所有后台 Goroutine 和 HTTP 服务器
func (a *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	events, err := a.Revalidator.Subscribe(ctx)
	if err != nil {
		// Hub 仍然运行，只是收不到失效信号
		a.Log.WithError(err).Error("Failed to subscribe to revalidation channel")
	}
	go a.Hub.Run(ctx, events)
	a.Log.Info("Hub routine started")

	go a.ShareLimiter.RunCleanup(ctx)

	go a.AsynqServer.Start()
	a.Log.Info("Asynq worker server routine started")

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	// 1. 停止 HTTP 服务器，不再接受新请求
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// 2. 停止 Hub、订阅和清理任务
	if a.cancel != nil {
		a.cancel()
	}

	// 3. 关闭 Worker Server
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}

	// 4. 关闭 Asynq Client
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}

	// 5. 关闭 Redis 连接
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	// 6. 关闭数据库连接池
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.Errorf("Error closing database connection: %v", err)
			}
		}
	}

	a.Log.Info("Application shutdown complete.")
}
