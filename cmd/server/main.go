package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/distrifarma/rutero-backend/internal/config"
	"github.com/distrifarma/rutero-backend/internal/database"
	"github.com/distrifarma/rutero-backend/internal/handlers"
	"github.com/distrifarma/rutero-backend/internal/middleware"
	"github.com/distrifarma/rutero-backend/internal/models"
	"github.com/distrifarma/rutero-backend/internal/services"
	"github.com/distrifarma/rutero-backend/pkg/jwt"
	"github.com/distrifarma/rutero-backend/pkg/prediction"
	"github.com/distrifarma/rutero-backend/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Rutero Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	clientRepo := database.NewClientRepository(db)
	routeRepo := database.NewRouteRepository(db)
	notifRepo := database.NewNotificationRepository(db)
	auditRepo := database.NewLoginAuditRepository(db)
	reportRepo := database.NewReportRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	rucValidator := validator.NewRUCValidator()
	predictionClient := prediction.NewClient(cfg.Prediction.BaseURL, cfg.Prediction.Timeout)

	authService := services.NewAuthService(userRepo, auditRepo, logger, cfg.Security.MaxFailedLogins, cfg.Security.BcryptCost)
	routeService := services.NewRouteService(routeRepo, notifRepo, logger)
	visitService := services.NewVisitService(routeRepo, logger)
	expirationService := services.NewExpirationService(routeRepo, notifRepo, logger, cfg.Sweep.WindowDays)
	recoveryService := services.NewRecoveryService(routeRepo, userRepo, predictionClient, logger)
	callQueueService := services.NewCallQueueService(clientRepo, cfg.CallQueue)

	// Initialize and start cron service
	cronService := services.NewCronService(expirationService, cfg.Sweep.CronSpec, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("Cron service started, expiration sweep scheduled")

	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, jwtService, userRepo)
	userHandler := handlers.NewUserHandler(userRepo, auditRepo, authService)
	clientHandler := handlers.NewClientHandler(clientRepo, rucValidator)
	routeHandler := handlers.NewRouteHandler(routeService, recoveryService, expirationService, logger)
	visitHandler := handlers.NewVisitHandler(visitService)
	predictionHandler := handlers.NewPredictionHandler(predictionClient, logger)
	callQueueHandler := handlers.NewCallQueueHandler(callQueueService)
	reportHandler := handlers.NewReportHandler(reportRepo, userRepo)
	notificationHandler := handlers.NewNotificationHandler(notifRepo)
	adminHandler := handlers.NewAdminHandler(cronService)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/account-status", authHandler.AccountStatus)
			auth.POST("/failed-attempt", authHandler.FailedAttempt)
		}

		// User routes (protected)
		users := v1.Group("/users")
		users.Use(middleware.AuthMiddleware(jwtService))
		{
			users.GET("/me", userHandler.GetProfile)

			admin := users.Group("")
			admin.Use(middleware.RequireRole(models.RoleAdministrador))
			{
				admin.POST("", userHandler.CreateUser)
				admin.GET("", userHandler.ListUsers)
				admin.PUT("/:id", userHandler.UpdateUser)
				admin.PUT("/:id/password", userHandler.SetPassword)
				admin.POST("/:id/unlock", userHandler.UnlockUser)
				admin.GET("/:id/login-failures", userHandler.LoginFailures)
			}
		}

		// Client registry routes (protected)
		clients := v1.Group("/clients")
		clients.Use(middleware.AuthMiddleware(jwtService))
		{
			clients.GET("", clientHandler.ListClients)
			clients.GET("/:ruc", clientHandler.GetClient)

			clientAdmin := clients.Group("")
			clientAdmin.Use(middleware.RequireRole(models.RoleAdministrador, models.RoleSupervisor))
			{
				clientAdmin.POST("", clientHandler.CreateClient)
				clientAdmin.PUT("/:ruc", clientHandler.UpdateClient)
				clientAdmin.GET("/export", clientHandler.ExportClients)
				clientAdmin.POST("/import", clientHandler.ImportClients)
			}
		}

		// Route lifecycle routes (protected)
		routes := v1.Group("/routes")
		routes.Use(middleware.AuthMiddleware(jwtService))
		{
			routes.POST("", routeHandler.CreateRoute)
			routes.GET("", routeHandler.ListRoutes)
			routes.GET("/:id", routeHandler.GetRoute)
			routes.PUT("/:id", routeHandler.UpdateRoute)
			routes.POST("/:id/submit", routeHandler.Submit)
			routes.POST("/:id/start", routeHandler.StartDay)
			routes.POST("/:id/recover", routeHandler.Recover)
			routes.POST("/:id/clients", routeHandler.AddClient)
			routes.POST("/:id/clients/:ruc/remove", routeHandler.RemoveClient)

			// Review actions for the assigned supervisor or an administrator
			review := routes.Group("")
			review.Use(middleware.RequireRole(models.RoleAdministrador, models.RoleSupervisor))
			{
				review.POST("/:id/approve", routeHandler.Approve)
				review.POST("/:id/reject", routeHandler.Reject)
			}

			// Administrator overrides
			override := routes.Group("")
			override.Use(middleware.RequireRole(models.RoleAdministrador))
			{
				override.POST("/:id/force-close", routeHandler.ForceClose)
				override.POST("/:id/reopen", routeHandler.Reopen)
			}

			// Daily visit workflow
			routes.GET("/:id/today", visitHandler.TodaySlate)
			routes.POST("/:id/clients/:ruc/check-in", visitHandler.CheckIn)
			routes.PUT("/:id/clients/:ruc/visit", visitHandler.CaptureVisit)
			routes.POST("/:id/clients/:ruc/check-out", visitHandler.CheckOut)
		}

		// Prediction proxy routes (protected)
		predictions := v1.Group("/predictions")
		predictions.Use(middleware.AuthMiddleware(jwtService))
		{
			predictions.GET("/predecir", predictionHandler.Predict)
			predictions.GET("/ruta_optima", predictionHandler.OptimalRoute)
		}

		// Telemarketing call queue (protected)
		callQueue := v1.Group("/call-queue")
		callQueue.Use(middleware.AuthMiddleware(jwtService))
		callQueue.Use(middleware.RequireRole(models.RoleAdministrador, models.RoleSupervisor, models.RoleTelemercaderista))
		{
			callQueue.GET("", callQueueHandler.GetQueue)
		}

		// KPI reports (protected)
		reports := v1.Group("/reports")
		reports.Use(middleware.AuthMiddleware(jwtService))
		{
			reports.GET("/sellers/:id", reportHandler.SellerSummary)

			teams := reports.Group("")
			teams.Use(middleware.RequireRole(models.RoleAdministrador, models.RoleSupervisor))
			{
				teams.GET("/teams/:id", reportHandler.TeamSummary)
			}
		}

		// Notification feed (protected)
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthMiddleware(jwtService))
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
		}

		// Admin operational routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService))
		admin.Use(middleware.RequireRole(models.RoleAdministrador))
		{
			admin.POST("/sweep", adminHandler.RunSweep)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
			fields["role"] = userCtx.Role
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
