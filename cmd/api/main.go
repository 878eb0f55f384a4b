package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"cargotrack/internal/config"
	"cargotrack/internal/database"
	"cargotrack/internal/handlers"
	"cargotrack/internal/logger"
	"cargotrack/internal/middleware"
	"cargotrack/internal/services"
	"cargotrack/internal/validator"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	validator.Register()

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: appConfig.RedisAddr})
	limiter := middleware.NewRateLimiter(redisClient)

	// Services
	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db)
	warehouseService := services.NewWarehouseService(db)
	trackService := services.NewTrackService(db)
	batchService := services.NewBatchService(db, auditService)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, auditService, appConfig)
	userHandler := handlers.NewUserHandler(userService, auditService)
	warehouseHandler := handlers.NewWarehouseHandler(warehouseService, auditService)
	trackHandler := handlers.NewTrackHandler(trackService, auditService)
	batchHandler := handlers.NewBatchHandler(batchService)
	auditHandler := handlers.NewAuditHandler(auditService)
	statsHandler := handlers.NewStatsHandler(userService, trackService, warehouseService, auditService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", middleware.LoginRateLimit(limiter, appConfig), authHandler.Login)
	v1.GET("/public/warehouses", warehouseHandler.ListActive)

	// Authenticated routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(userService, appConfig))

	protected.GET("/profile", authHandler.Profile)
	protected.POST("/tracks/assign", trackHandler.Assign)
	protected.GET("/tracks/my", trackHandler.MyTracks)
	protected.GET("/tracks/search/:number", trackHandler.Search)
	protected.GET("/warehouses/active", warehouseHandler.ListActive)

	// Staff routes
	admin := protected.Group("/")
	admin.Use(middleware.RequireAdmin())

	admin.GET("/users", userHandler.List)
	admin.GET("/users/:id", userHandler.Get)
	admin.POST("/users", userHandler.Create)
	admin.PATCH("/users/:id/active", userHandler.ToggleActive)
	admin.DELETE("/users/:id", userHandler.Delete)
	admin.GET("/users/code/:code/tracks", trackHandler.UserTracks)

	admin.POST("/tracks/upload", trackHandler.Upload)
	admin.GET("/tracks", trackHandler.List)
	admin.GET("/tracks/by-date/:date", trackHandler.ByDate)
	admin.GET("/tracks/calendar", trackHandler.Calendar)
	admin.POST("/tracks/:number/receive", trackHandler.Receive)
	admin.POST("/tracks/:number/transfer", trackHandler.Transfer)
	admin.POST("/tracks/:number/handout", trackHandler.Handout)
	admin.POST("/tracks/:number/archive", trackHandler.Archive)
	admin.PATCH("/tracks/id/:id/status", trackHandler.UpdateStatus)

	admin.GET("/warehouses", warehouseHandler.ListAll)
	admin.GET("/warehouses/:code/stats", warehouseHandler.Stats)
	admin.GET("/warehouses/:code/inventory", trackHandler.Inventory)

	admin.POST("/batch/deliver", batchHandler.Deliver)
	admin.POST("/batch/delete", batchHandler.Delete)
	admin.POST("/batch/status-by-date", batchHandler.StatusByDate)
	admin.POST("/batch/status-by-warehouse", batchHandler.StatusByWarehouse)

	admin.GET("/stats", statsHandler.System)
	admin.GET("/audit/users/:email", auditHandler.ByActor)
	admin.GET("/audit/entity/:entity/:id", auditHandler.ByEntity)

	// Superadmin routes
	super := protected.Group("/")
	super.Use(middleware.RequireSuperadmin())

	super.POST("/warehouses", warehouseHandler.Create)
	super.PUT("/warehouses/:id", warehouseHandler.Update)
	super.DELETE("/warehouses/:id", warehouseHandler.Delete)
	super.PATCH("/users/:id/role", userHandler.ChangeRole)
	super.PATCH("/users/:id/warehouse", userHandler.AssignWarehouse)
	super.GET("/users/export", userHandler.ExportCSV)
	super.GET("/audit/logs", auditHandler.List)
	super.GET("/audit/stats", auditHandler.Stats)

	log.Infof("Starting cargotrack API server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
