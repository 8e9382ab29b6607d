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

	_ "github.com/campus-ops/equiploan-api/api/swagger"
	"github.com/campus-ops/equiploan-api/internal/handler"
	"github.com/campus-ops/equiploan-api/internal/middleware"
	"github.com/campus-ops/equiploan-api/internal/repository"
	"github.com/campus-ops/equiploan-api/internal/service"
	"github.com/campus-ops/equiploan-api/pkg/cache"
	"github.com/campus-ops/equiploan-api/pkg/config"
	"github.com/campus-ops/equiploan-api/pkg/database"
	"github.com/campus-ops/equiploan-api/pkg/jobs"
	"github.com/campus-ops/equiploan-api/pkg/logger"
	corsmiddleware "github.com/campus-ops/equiploan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-ops/equiploan-api/pkg/middleware/requestid"
	"github.com/campus-ops/equiploan-api/pkg/ratelimit"
	"github.com/campus-ops/equiploan-api/pkg/storage"
)

// @title EquipLoan API
// @version 1.0.0
// @description Campus equipment borrowing and reservation backend
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	borrowRepo := repository.NewBorrowRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	penaltyRepo := repository.NewPenaltyRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)

	var cacheRepo *repository.CacheRepository
	if cfg.Catalog.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
	}

	limiter := ratelimit.NewResetLimiter(cfg.Reset.RequestLimit, cfg.Reset.RequestWindow)

	authSvc := service.NewAuthService(userRepo, limiter, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		ResetTokenTTL:      cfg.Reset.TokenTTL,
	})
	userSvc := service.NewUserService(userRepo, nil, logr)

	var resourceSvc *service.ResourceService
	if cacheRepo != nil {
		resourceSvc = service.NewResourceService(resourceRepo, cacheRepo, cfg.Catalog.CacheTTL, nil, logr)
	} else {
		resourceSvc = service.NewResourceService(resourceRepo, nil, cfg.Catalog.CacheTTL, nil, logr)
	}

	borrowSvc := service.NewBorrowService(borrowRepo, userRepo, resourceRepo, penaltyRepo, notificationRepo, nil, logr, service.BorrowConfig{
		DailyLateFine: cfg.Overdue.DailyLateFine,
	})
	reservationSvc := service.NewReservationService(reservationRepo, userRepo, resourceRepo, nil, logr, service.ReservationConfig{})
	penaltySvc := service.NewPenaltyService(penaltyRepo, nil, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, penaltyRepo, nil, logr)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, nil, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, nil, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, nil, logr)
	metricsSvc := service.NewMetricsService()

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		User:         handler.NewUserHandler(userSvc),
		Resource:     handler.NewResourceHandler(resourceSvc),
		Borrow:       handler.NewBorrowHandler(borrowSvc),
		Reservation:  handler.NewReservationHandler(reservationSvc),
		Penalty:      handler.NewPenaltyHandler(penaltySvc),
		Payment:      handler.NewPaymentHandler(paymentSvc),
		Feedback:     handler.NewFeedbackHandler(feedbackSvc),
		Notification: handler.NewNotificationHandler(notificationSvc),
		Announcement: handler.NewAnnouncementHandler(announcementSvc),
	}

	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportSvc := service.NewReportService(borrowRepo, store, signer, logr)

		queue := jobs.NewQueue("reports", reportSvc.Process, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportSvc.SetQueue(queue)
		queue.Start(ctx)
		defer queue.Stop()

		handlers.Report = handler.NewReportHandler(reportSvc)
	}

	if cfg.Overdue.Enabled {
		overdueSvc := service.NewOverdueService(borrowRepo, penaltyRepo, reservationRepo, notificationRepo, logr, service.OverdueConfig{
			Interval:      cfg.Overdue.Interval,
			DailyLateFine: cfg.Overdue.DailyLateFine,
		})
		go overdueSvc.Run(ctx)
	}

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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc, userRepo)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
