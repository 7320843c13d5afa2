package main

import (
	"docflow/internal/auth"
	"docflow/internal/broadcast"
	"docflow/internal/cache"
	"docflow/internal/compliance"
	"docflow/internal/config"
	"docflow/internal/document"
	"docflow/internal/logger"
	"docflow/internal/middleware"
	"docflow/internal/realtime"
	"docflow/internal/user"
	"docflow/internal/worker"
	"docflow/internal/workflow"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// app holds the long lived dependencies the routes are built from
type app struct {
	db      *gorm.DB
	cache   *cache.Cache
	bus     broadcast.Bus
	workers *worker.WorkerPool
	log     zerolog.Logger
}

func newRouter(cfg *config.Config, a app) *gin.Engine {
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	// Initialize repository
	userRepo := user.NewRepository(a.db)
	docRepo := document.NewRepository(a.db)
	workflowRepo := workflow.NewRepository(a.db)
	// Initialize service
	userService := user.NewService(userRepo)
	docService := document.NewService(docRepo, userService, document.Options{
		Cache:    a.cache,
		CacheTTL: cfg.ListCacheTTL,
		Bus:      a.bus,
		Workers:  a.workers,
		Log:      logger.Component(a.log, "document"),
	})
	workflowService := workflow.NewService(workflowRepo)
	// Initialize handler
	userHandler := user.NewHandler(userService, tokens)
	docHandler := document.NewHandler(docService)
	workflowHandler := workflow.NewHandler(workflowService)
	complianceHandler := compliance.NewHandler(compliance.NewClient(cfg.ComplianceURL))
	hub := realtime.NewHub(a.bus, cfg.FrontendAddress, logger.Component(a.log, "realtime"))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger.Component(a.log, "http")))

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}
	if cfg.Environment == "development" || cfg.FrontendAddress == "" {
		// Allow all origins in development or when no frontend is configured
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.ErrorHandler(logger.Component(a.log, "http")))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/auth", userHandler.Login)

	authMiddleware := &middleware.Auth{Tokens: tokens}
	protected := router.Group("/", authMiddleware.AuthMiddleWare())
	protected.GET("/users", userHandler.ListByOrganization)
	protected.GET("/ws", hub.Serve)
	docHandler.RegisterRoutes(protected)
	workflowHandler.RegisterRoutes(protected)
	complianceHandler.RegisterRoutes(protected)

	return router
}
