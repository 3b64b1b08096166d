package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz_engine_backend/internal/config"
	"quiz_engine_backend/internal/controller"
	"quiz_engine_backend/internal/repository"
	"quiz_engine_backend/internal/service"
	"quiz_engine_backend/internal/util"
	"quiz_engine_backend/pkg/configwatcher"
	"quiz_engine_backend/pkg/database"
	"quiz_engine_backend/pkg/events"
	"quiz_engine_backend/pkg/logger"
	"quiz_engine_backend/pkg/monitoring"
	"quiz_engine_backend/pkg/security"
	"quiz_engine_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client
	Publisher events.Publisher
	tracer    *sdktrace.TracerProvider
	stop      context.CancelFunc
}

type repositories struct {
	assignment *repository.AssignmentRepository
	attempt    *repository.AttemptRepository
}

type services struct {
	assignment *service.AssignmentService
	attempt    *service.AttemptService
}

type controllers struct {
	assignment *controller.AssignmentController
	health     *controller.HealthController
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		assignment: repository.NewAssignmentRepository(db),
		attempt:    repository.NewAttemptRepository(db),
	}
}

func initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client, publisher events.Publisher) *services {
	blobs := service.NewBlobStore(&cfg.Storage)
	thumbnails := service.NewThumbnailProcessor(cfg.Thumbnail)
	cache := service.NewAssignmentCache(rdb, cfg.Cache.AssignmentTTL())

	return &services{
		assignment: service.NewAssignmentService(repos.assignment, repos.attempt, blobs, thumbnails, cache, publisher),
		attempt:    service.NewAttemptService(db, repos.assignment, repos.attempt, publisher),
	}
}

func initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		assignment: controller.NewAssignmentController(s.assignment, s.attempt),
		health:     controller.NewHealthController(db, rdb),
	}
}

func setupMiddlewares(router *gin.Engine, cfg *config.Config, limiter *security.RateLimiter) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewApp connects storage, runs migrations and wires the HTTP router.
func NewApp(cfg *config.Config) *App {
	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	app := &App{Config: cfg, DB: db}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	publisher, err := events.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
	if err != nil {
		logger.Log.Fatal("Failed to initialize event publisher", zap.Error(err))
	}
	app.Publisher = publisher

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	// 监控初始化
	monitoring.Init()

	repos := initRepositories(db)
	svcs := initServices(repos, cfg, db, rdb, publisher)
	ctrls := initControllers(svcs, db, rdb)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	limiter := security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	bg, stop := context.WithCancel(context.Background())
	go limiter.Run(bg)
	if cfg.Dir != "" {
		go func() {
			// 仅日志级别支持热更新，其余配置需重启生效
			err := configwatcher.Watch(bg, cfg.Dir, func(newCfg *config.Config) {
				if err := logger.ApplyLevel(newCfg); err != nil {
					logger.Log.Warn("Ignoring reloaded log level", zap.Error(err))
				}
			})
			if err != nil {
				logger.Log.Warn("Config hot reload disabled", zap.Error(err))
			}
		}()
	}
	app.stop = stop
	setupMiddlewares(router, cfg, limiter)
	registerRoutes(router, ctrls, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.Router = router
	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close releases the external connections held by the app.
func (a *App) Close(ctx context.Context) {
	if a.stop != nil {
		a.stop()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			logger.Log.Error("Failed to close event publisher", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
