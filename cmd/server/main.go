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
	"github.com/luxeride/booking-backend/internal/config"
	"github.com/luxeride/booking-backend/internal/database"
	"github.com/luxeride/booking-backend/internal/handlers"
	"github.com/luxeride/booking-backend/internal/middleware"
	"github.com/luxeride/booking-backend/internal/services"
	"github.com/luxeride/booking-backend/pkg/jwt"
	"github.com/luxeride/booking-backend/pkg/mail"
	"github.com/luxeride/booking-backend/pkg/payment"
	"github.com/sirupsen/logrus"
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

	logger.Info("Starting LuxeRide Booking Backend")
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
	vehicleRepo := database.NewVehicleRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	auditRepo := database.NewPaymentAuditRepository(db, logger)
	adminRepo := database.NewAdminUserRepository(db)

	// Initialize the payment gateway client
	gateway, err := payment.NewHTTPGateway(payment.Config{
		BaseURL:            cfg.Payment.BaseURL,
		APIKey:             cfg.Payment.APIKey,
		APISecret:          cfg.Payment.APISecret,
		WebhookSecret:      cfg.Payment.WebhookSecret,
		InsecureSkipVerify: cfg.Payment.InsecureSkipVerify,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize payment gateway: %v", err)
	}

	// Initialize the mail notifier
	var notifier mail.Notifier
	if cfg.Mail.Enabled {
		notifier = mail.NewSMTPNotifier(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}, logger)
	} else {
		notifier = mail.NewNoopNotifier(logger)
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	airportMatcher := services.NewKeywordAirportMatcher()
	pricingService := services.NewPricingService(
		cfg.Pricing,
		cfg.Payment.Currency,
		airportMatcher,
		services.NewLegacyTextClassifier(airportMatcher),
	)
	lifecycleService := services.NewBookingLifecycleService(
		bookingRepo,
		vehicleRepo,
		pricingService,
		notifier,
		cfg.Reservation,
		cfg.Payment.Currency,
		logger,
	)
	reconcilerService := services.NewPaymentReconcilerService(
		gateway,
		bookingRepo,
		vehicleRepo,
		lifecycleService,
		pricingService,
		auditRepo,
		cfg.Payment,
		logger,
	)
	expiryService := services.NewReservationExpiryService(bookingRepo, vehicleRepo, auditRepo, logger)
	adminAuthService := services.NewAdminAuthService(adminRepo, jwtService, logger)

	// Start scheduled jobs
	cronService := services.NewCronService(expiryService, cfg.Reservation.SweepSchedule, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(lifecycleService, logger)
	paymentHandler := handlers.NewPaymentHandler(reconcilerService, logger)
	vehicleHandler := handlers.NewVehicleHandler(vehicleRepo, logger)
	adminHandler := handlers.NewAdminHandler(adminAuthService, bookingRepo, auditRepo, cronService, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

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
		// Vehicle catalog (public)
		vehicles := v1.Group("/vehicles")
		{
			vehicles.GET("", vehicleHandler.List)
			vehicles.GET("/:id", vehicleHandler.Get)
		}

		// Booking routes (public, customer-facing)
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", bookingHandler.Create)
			bookings.POST("/quote", bookingHandler.Quote)
			bookings.GET("/:id", bookingHandler.Get)
			bookings.POST("/:id/cancel", bookingHandler.Cancel)
			bookings.POST("/:id/checkout", paymentHandler.CreateCheckoutSession)
			bookings.POST("/:id/confirm", paymentHandler.ConfirmFallback)
		}

		// Payment gateway webhook (authenticated by signature, not JWT)
		payments := v1.Group("/payments")
		{
			payments.POST("/webhook", paymentHandler.Webhook)
		}

		// Admin routes
		admin := v1.Group("/admin")
		{
			admin.POST("/login", adminHandler.Login)

			protected := admin.Group("")
			protected.Use(middleware.AuthMiddleware(jwtService))
			{
				protected.GET("/bookings", adminHandler.ListBookings)
				protected.GET("/bookings/:id/audits", adminHandler.BookingAudits)
				protected.GET("/audits", adminHandler.ListAudits)
				protected.POST("/sweep", adminHandler.RunSweep)
				protected.GET("/jobs", adminHandler.JobStatus)
			}
		}
	}

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

	cronService.Stop()

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
		}

		entry := logger.WithFields(fields)
		status := c.Writer.Status()
		switch {
		case len(c.Errors) > 0:
			entry.WithField("errors", c.Errors.String()).Error("Request failed with errors")
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
