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
	"github.com/salonspace/booking-backend/internal/config"
	"github.com/salonspace/booking-backend/internal/database"
	"github.com/salonspace/booking-backend/internal/events"
	"github.com/salonspace/booking-backend/internal/handlers"
	"github.com/salonspace/booking-backend/internal/metrics"
	"github.com/salonspace/booking-backend/internal/middleware"
	"github.com/salonspace/booking-backend/internal/services"
	"github.com/salonspace/booking-backend/pkg/jwt"
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

	logger.Info("Starting SalonSpace booking payments backend")
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

	// Set Gin mode and log format
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.RunMigrations {
		logger.Info("Running database migrations...")
		if err := database.RunMigrations(db.DB.DB); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		logger.Info("✓ Migrations applied")
	}

	// Initialize repositories
	listingRepository := database.NewListingRepository(db)
	profileRepository := database.NewProfileRepository(db)
	bookingRepository := database.NewBookingRepository(db)
	outboxRepository := database.NewOutboxRepository(db)
	paymentAuditRepository := database.NewPaymentAuditRepository(db, logger)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenExpiry)
	stripeService := services.NewStripeService(cfg.Stripe, logger)
	timeouts := services.Timeouts{
		Provider: cfg.Stripe.Timeout,
		Database: cfg.Database.QueryTimeout,
	}

	auditService := services.NewAuditService(paymentAuditRepository, cfg.Database.QueryTimeout, logger)
	quoteValidator := services.NewQuoteValidator(cfg.Payment)
	splitBuilder := services.NewSplitPaymentBuilder(stripeService, cfg.Payment.PlatformFeeBasisPoints, cfg.Stripe.Currency, logger)
	sessionFactory := services.NewCheckoutSessionFactory(stripeService, logger)
	materializer := services.NewBookingMaterializer(bookingRepository, quoteValidator, timeouts, logger)

	bookingPaymentService := services.NewBookingPaymentService(
		listingRepository,
		quoteValidator,
		splitBuilder,
		sessionFactory,
		auditService,
		timeouts,
		logger,
	)
	webhookService := services.NewWebhookService(stripeService, materializer, auditService, logger)
	paymentVerifier := services.NewPaymentVerifier(stripeService, materializer, auditService, timeouts, logger)
	connectService := services.NewConnectService(stripeService, profileRepository, auditService, cfg.Stripe, timeouts, logger)
	bookingService := services.NewBookingService(bookingRepository, auditService, timeouts, logger)

	// Rate limiting is optional; keep the interface nil when redis is not configured
	var rateLimiter middleware.RateLimiter
	var redisCheck handlers.HealthCheck
	if rateLimitService := services.NewRateLimitService(cfg.Redis); rateLimitService != nil {
		rateLimiter = rateLimitService
		redisCheck = rateLimitService.Ping
		defer rateLimitService.Close()
		logger.WithField("addr", cfg.Redis.Addr).Info("✓ Redis rate limiting enabled")
	} else {
		logger.Info("Rate limiting disabled (REDIS_ADDR not set)")
	}

	// Booking event stream is optional as well
	var outboxRelay *services.OutboxRelay
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewKafkaProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		outboxRelay = services.NewOutboxRelay(outboxRepository, producer, cfg.Kafka.BookingTopic, cfg.Kafka.OutboxBatchSize, logger)
		logger.WithField("topic", cfg.Kafka.BookingTopic).Info("✓ Booking event relay enabled")
	} else {
		logger.Info("Booking event relay disabled (KAFKA_BROKERS not set)")
	}

	// Initialize and start cron service
	cronService := services.NewCronService(outboxRelay, bookingService, logger)
	if err := cronService.Start(cfg.Kafka.OutboxSchedule, cfg.Kafka.CompletionSchedule); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	logger.Info("Services initialized")

	// Initialize handlers
	origins := handlers.NewOriginResolver(cfg.CORS.AllowedOrigins, cfg.Server.SiteURL)
	paymentHandler := handlers.NewPaymentHandler(bookingPaymentService, paymentVerifier, origins, logger)
	webhookHandler := handlers.NewWebhookHandler(webhookService, logger)
	connectHandler := handlers.NewConnectHandler(connectService, origins, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	healthHandler := handlers.NewHealthHandler(db.PingContext, redisCheck, 5*time.Second, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	if cfg.Metrics.Enabled {
		router.Use(metrics.Middleware())
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check and metrics endpoints
	router.GET("/health", healthHandler.Health)
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	authMiddleware := middleware.AuthMiddleware(jwtService, logger)
	requireProfile := middleware.RequireProfile(profileRepository, cfg.Database.QueryTimeout, logger)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Provider webhooks (public, authenticated by signature)
		v1.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

		// Protected routes (require authentication and a marketplace profile)
		protected := v1.Group("")
		protected.Use(authMiddleware, requireProfile)
		{
			payments := protected.Group("/payments")
			{
				payments.POST("/checkout",
					middleware.RateLimit(rateLimiter, "checkout", cfg.Redis.CheckoutPerMinute, time.Minute, logger),
					paymentHandler.CreateCheckout,
				)
				payments.POST("/verify",
					middleware.RateLimit(rateLimiter, "verify", cfg.Redis.VerifyPerMinute, time.Minute, logger),
					paymentHandler.VerifyPayment,
				)
			}

			connect := protected.Group("/connect")
			{
				connect.POST("/account", middleware.RequireSalonOwner(), connectHandler.CreateAccount)
				connect.GET("/status", connectHandler.GetStatus)
			}

			bookings := protected.Group("/bookings")
			{
				bookings.GET("", bookingHandler.ListMyBookings)
				bookings.GET("/:id", bookingHandler.GetBooking)
				bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
			}
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
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

	// Stop cron service
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

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			// Presence only, never the token
			"has_auth": c.GetHeader("Authorization") != "",
		}

		if userID, exists := c.Get("user_id"); exists {
			fields["user_id"] = userID
		}
		if profileID, exists := c.Get("profile_id"); exists {
			fields["profile_id"] = profileID
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
