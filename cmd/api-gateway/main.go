package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/pulseplan/pulseplan-api/api/swagger"
	"github.com/pulseplan/pulseplan-api/internal/handler"
	"github.com/pulseplan/pulseplan-api/internal/middleware"
	"github.com/pulseplan/pulseplan-api/internal/repository"
	"github.com/pulseplan/pulseplan-api/internal/service"
	"github.com/pulseplan/pulseplan-api/pkg/cache"
	"github.com/pulseplan/pulseplan-api/pkg/config"
	"github.com/pulseplan/pulseplan-api/pkg/database"
	"github.com/pulseplan/pulseplan-api/pkg/logger"
	corsmiddleware "github.com/pulseplan/pulseplan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pulseplan/pulseplan-api/pkg/middleware/requestid"
)

// @title PulsePlan API
// @version 0.1.0
// @description Calendar engine for the PulsePlan productivity tracker
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
	if cfg.Calendar.ViewCacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, view caching disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Calendar.ViewCacheTTL, logr, true)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	eventRepo := repository.NewEventRepository(db)
	exceptionRepo := repository.NewExceptionRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	validate := validator.New()

	taskLinkSvc := service.NewTaskLinkService(taskRepo, logr)
	expander := service.NewRecurrenceExpander(cfg.Calendar.MaxOccurrences, logr)
	eventSvc := service.NewEventService(eventRepo, exceptionRepo, taskLinkSvc, validate, cacheSvc, logr)
	conflictSvc := service.NewConflictService(eventRepo, validate, logr)
	viewSvc := service.NewViewService(eventRepo, exceptionRepo, taskLinkSvc, expander, cacheSvc, cfg.Calendar.ViewCacheTTL, logr)

	eventHandler := handler.NewEventHandler(eventSvc)
	viewHandler := handler.NewViewHandler(viewSvc)
	conflictHandler := handler.NewConflictHandler(conflictSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		events := api.Group("/calendar/events")
		events.POST("", eventHandler.Create)
		events.GET("", eventHandler.List)
		events.GET("/:id", eventHandler.Get)
		events.PUT("/:id", eventHandler.Update)
		events.DELETE("/:id", eventHandler.Delete)
		events.POST("/:id/exceptions", eventHandler.CreateException)
		events.GET("/:id/exceptions", eventHandler.ListExceptions)
		events.DELETE("/:id/exceptions/:excID", eventHandler.DeleteException)

		views := api.Group("/calendar/views")
		views.GET("/day", viewHandler.Day)
		views.GET("/week", viewHandler.Week)
		views.GET("/month", viewHandler.Month)

		api.POST("/calendar/conflicts/check", conflictHandler.Check)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
