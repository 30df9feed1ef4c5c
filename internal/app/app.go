package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formpulse_backend/internal/config"
	"formpulse_backend/internal/controller"
	"formpulse_backend/internal/engine"
	"formpulse_backend/internal/middleware"
	"formpulse_backend/internal/repository"
	"formpulse_backend/internal/service"
	"formpulse_backend/pkg/database"
	"formpulse_backend/pkg/logger"
	"formpulse_backend/pkg/monitoring"
	"formpulse_backend/pkg/security"
	"formpulse_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type repositories struct {
	questionnaire *repository.QuestionnaireRepository
	response      *repository.ResponseRepository
}

type services struct {
	questionnaire *service.QuestionnaireService
	response      *service.ResponseService
	analytics     *service.AnalyticsService
	storage       service.StorageProvider
}

type controllers struct {
	questionnaire *controller.QuestionnaireController
	response      *controller.ResponseController
	analytics     *controller.AnalyticsController
	health        *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		questionnaire: repository.NewQuestionnaireRepository(db),
		response:      repository.NewResponseRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	thresholds := engine.QualityThresholds{
		SpeedingSecondsPerQuestion: cfg.Quality.SpeedingThresholdSeconds,
		MinAnswerRatio:             cfg.Quality.MinAnswerRatio,
	}
	aggregateOpts := engine.AggregateOptions{
		DefaultRatingMax: cfg.Analytics.DefaultRatingMax,
		TopKeywords:      cfg.Analytics.TopKeywords,
	}

	storage, err := service.NewStorageProvider(&cfg.Storage)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage provider", zap.Error(err))
	}
	s.storage = storage

	s.questionnaire = service.NewQuestionnaireService(repos.questionnaire)
	s.response = service.NewResponseService(repos.response, repos.questionnaire, storage, thresholds)
	s.analytics = service.NewAnalyticsService(
		repos.response,
		repos.questionnaire,
		rdb,
		time.Duration(cfg.Analytics.ReportCacheTTLMinutes)*time.Minute,
		aggregateOpts,
	)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		questionnaire: controller.NewQuestionnaireController(s.questionnaire),
		response:      controller.NewResponseController(s.response, s.analytics),
		analytics:     controller.NewAnalyticsController(s.analytics),
		health:        controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(middleware.RequestLogger())
	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(services, db)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("formpulse", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
