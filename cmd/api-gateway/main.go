package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-transfer-api/api/swagger"
	"github.com/noah-isme/sma-transfer-api/internal/handler"
	"github.com/noah-isme/sma-transfer-api/internal/middleware"
	"github.com/noah-isme/sma-transfer-api/internal/models"
	"github.com/noah-isme/sma-transfer-api/internal/repository"
	"github.com/noah-isme/sma-transfer-api/internal/service"
	"github.com/noah-isme/sma-transfer-api/pkg/cache"
	"github.com/noah-isme/sma-transfer-api/pkg/config"
	"github.com/noah-isme/sma-transfer-api/pkg/database"
	"github.com/noah-isme/sma-transfer-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-transfer-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-transfer-api/pkg/middleware/requestid"
)

// @title SMA Transfer API
// @version 1.0.0
// @description Batch student transfers between classes with time-windowed undo
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The destination cache is an optimization, not a dependency.
		logr.Sugar().Warnw("redis unavailable, destination cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Transfers.DestinationCacheTTL, logr, cfg.Transfers.DestinationCacheOn)
	}

	transferStore := repository.NewTransferStore(db)
	historyRepo := repository.NewHistoryRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	authSvc := service.NewAuthService(cfg.JWT.Secret)
	transferSvc := service.NewTransferService(transferStore, historyRepo, classRepo, studentRepo,
		enrollmentRepo, cfg.Transfers.UndoWindow, cfg.Transfers.MaxBatchSize, nil, logr,
		service.WithTransferCache(cacheSvc),
		service.WithTransferMetrics(metricsSvc))
	exportSvc := service.NewExportService(historyRepo, studentRepo, logr)

	transferHandler := handler.NewTransferHandler(transferSvc, exportSvc)
	classHandler := handler.NewClassHandler(transferSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "cache": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		writes := api.Group("")
		writes.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleOperator))
		{
			writes.POST("/transfers", transferHandler.Create)
			writes.POST("/transfers/:id/undo", transferHandler.Undo)
		}

		api.GET("/transfers/:id", transferHandler.Get)
		api.GET("/transfers/:id/export", transferHandler.Export)
		api.GET("/classes/:id", classHandler.Get)
		api.GET("/classes/:id/eligible-destinations", classHandler.EligibleDestinations)
		api.GET("/students/:id/enrollment", transferHandler.StudentEnrollment)
		api.GET("/students/:id/history", transferHandler.StudentHistory)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
