// Package main runs the convention platform HTTP API with the admin WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conventionhub/backend/config"
	"github.com/conventionhub/backend/internal/auth"
	"github.com/conventionhub/backend/internal/conventions"
	"github.com/conventionhub/backend/internal/emaillogs"
	"github.com/conventionhub/backend/internal/lookups"
	"github.com/conventionhub/backend/internal/middleware"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/internal/pricing"
	"github.com/conventionhub/backend/internal/realtime"
	"github.com/conventionhub/backend/internal/roleapps"
	"github.com/conventionhub/backend/internal/schedule"
	"github.com/conventionhub/backend/internal/series"
	"github.com/conventionhub/backend/internal/uploads"
	"github.com/conventionhub/backend/internal/users"
	"github.com/conventionhub/backend/internal/venues"
	"github.com/conventionhub/backend/pkg/database"
	"github.com/conventionhub/backend/pkg/queue"
	"github.com/conventionhub/backend/pkg/redis"
	"github.com/conventionhub/backend/pkg/response"
	"github.com/conventionhub/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue, err := queue.Open(cfg.Queue.Driver, rdb.Client, cfg.Queue.AMQPURL, logger)
	if err != nil {
		logger.Fatal("queue", zap.Error(err))
	}
	defer jobQueue.Close()

	store, err := storage.New(ctx, storage.Config{
		Driver:        cfg.Storage.Driver,
		LocalDir:      cfg.Storage.LocalDir,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		S3: storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Bucket:               cfg.AWS.MediaBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		},
	}, storage.WithLogger(logger))
	if err != nil {
		logger.Fatal("storage", zap.Error(err))
	}
	var presigner uploads.Presigner
	if s3Store, ok := store.(*storage.S3); ok {
		presigner = s3Store
	}

	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth and users
	authSvc := auth.NewService(auth.NewRepository(pool), jwtService, jobQueue, cfg.App.BaseURL, logger)
	authHandler := auth.NewHandler(authSvc, logger)
	userHandler := users.NewHandler(users.NewService(users.NewRepository(pool)), logger)

	// Series and conventions
	seriesHandler := series.NewHandler(series.NewService(series.NewRepository(pool)), logger)
	conventionSvc := conventions.NewService(conventions.NewRepository(pool), hub, logger)
	conventionHandler := conventions.NewHandler(conventionSvc, logger)

	// Nested convention resources
	venueHandler := venues.NewHandler(venues.NewRepository(pool), logger)
	pricingHandler := pricing.NewHandler(pricing.NewService(pricing.NewRepository(pool), logger), logger)
	scheduleHandler := schedule.NewHandler(schedule.NewRepository(pool), logger)
	maxUpload := int64(cfg.Storage.MaxUploadMB) << 20
	uploadHandler := uploads.NewHandler(store, presigner, conventionSvc, uploads.NewRepository(pool), maxUpload, logger)

	// Role applications
	roleAppSvc := roleapps.NewService(roleapps.NewRepository(pool), jobQueue, hub, cfg.App.BaseURL, logger)
	roleAppHandler := roleapps.NewHandler(roleAppSvc, logger)

	lookupHandler := lookups.NewHandler(lookups.NewRepository(pool), logger)
	emailLogHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	if cfg.Storage.Driver == "local" && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		router.Static(cfg.Storage.PublicBaseURL, cfg.Storage.LocalDir)
	}

	api := router.Group("/api")

	// Public auth
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
		authGroup.POST("/verify-email", authHandler.VerifyEmail)
	}

	// Public reads; a token, when present, unlocks drafts the caller manages.
	public := api.Group("")
	public.Use(middleware.OptionalJWT(jwtService))
	{
		public.GET("/lookups/timezones", lookupHandler.Timezones)
		public.GET("/lookups/countries", lookupHandler.Countries)
		public.GET("/lookups/states", lookupHandler.States)
		public.GET("/lookups/currencies", lookupHandler.Currencies)

		public.GET("/series/:id", seriesHandler.Get)

		public.GET("/conventions", conventionHandler.ListPublic)
		public.GET("/conventions/slug/:slug", conventionHandler.GetBySlug)
		public.GET("/conventions/:id", conventionHandler.GetByID)

		visible := public.Group("/conventions/:id", conventions.RequireVisible(conventionSvc))
		visible.GET("/venues", venueHandler.ListVenues)
		visible.GET("/venues/:itemId", venueHandler.GetVenue)
		visible.GET("/hotels", venueHandler.ListHotels)
		visible.GET("/hotels/:itemId", venueHandler.GetHotel)
		visible.GET("/pricing", pricingHandler.Get)
		visible.GET("/schedule", scheduleHandler.Get)
		visible.GET("/media", uploadHandler.ListMedia)
	}

	// Authenticated API
	protected := api.Group("")
	protected.Use(middleware.JWT(jwtService))
	{
		protected.POST("/auth/refresh", authHandler.Refresh)
		protected.GET("/auth/me", authHandler.Me)
		protected.POST("/auth/verify-email/resend", authHandler.ResendVerification)

		protected.GET("/users/:id", userHandler.Get)
		protected.PATCH("/users/:id", userHandler.Update)

		protected.POST("/series", seriesHandler.Create)
		protected.GET("/series/mine", seriesHandler.Mine)
		protected.PATCH("/series/:id", seriesHandler.Update)
		protected.DELETE("/series/:id", seriesHandler.Delete)

		protected.GET("/organizer/conventions", conventionHandler.ListMine)
		protected.POST("/conventions", conventionHandler.Create)
		protected.POST("/conventions/bulk", conventionHandler.Bulk)
		protected.PATCH("/conventions/:id", conventionHandler.Update)
		protected.PATCH("/conventions/:id/status", conventionHandler.SetStatus)
		protected.DELETE("/conventions/:id", conventionHandler.Delete)
		protected.POST("/conventions/:id/restore", conventionHandler.Restore)
		protected.POST("/conventions/:id/duplicate", conventionHandler.Duplicate)

		manage := protected.Group("/conventions/:id", conventions.RequireManage(conventionSvc))
		manage.POST("/venues", venueHandler.CreateVenue)
		manage.PUT("/venues/:itemId", venueHandler.UpdateVenue)
		manage.DELETE("/venues/:itemId", venueHandler.DeleteVenue)
		manage.POST("/hotels", venueHandler.CreateHotel)
		manage.PUT("/hotels/:itemId", venueHandler.UpdateHotel)
		manage.DELETE("/hotels/:itemId", venueHandler.DeleteHotel)
		manage.POST("/pricing/tiers", pricingHandler.CreateTier)
		manage.PUT("/pricing/tiers/:itemId", pricingHandler.UpdateTier)
		manage.DELETE("/pricing/tiers/:itemId", pricingHandler.DeleteTier)
		manage.PUT("/pricing/discounts", pricingHandler.ReplaceDiscounts)
		manage.POST("/schedule/days", scheduleHandler.CreateDay)
		manage.PUT("/schedule/days/:itemId", scheduleHandler.UpdateDay)
		manage.DELETE("/schedule/days/:itemId", scheduleHandler.DeleteDay)
		manage.POST("/schedule/items", scheduleHandler.CreateItem)
		manage.PUT("/schedule/items/:itemId", scheduleHandler.UpdateItem)
		manage.DELETE("/schedule/items/:itemId", scheduleHandler.DeleteItem)
		manage.POST("/media", uploadHandler.AddMedia)
		manage.DELETE("/media/:itemId", uploadHandler.DeleteMedia)

		protected.POST("/uploads/images", uploadHandler.UploadImage)
		protected.POST("/uploads/presign", uploadHandler.Presign)

		protected.POST("/role-applications", roleAppHandler.Apply)
		protected.GET("/role-applications/mine", roleAppHandler.Mine)
	}

	// Admin
	admin := api.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", userHandler.List)
		admin.PUT("/users/:id/roles", userHandler.SetRoles)
		admin.DELETE("/users/:id", userHandler.Delete)

		admin.GET("/conventions", conventionHandler.ListAll)
		admin.POST("/conventions/expire", conventionHandler.Expire)

		admin.GET("/role-applications", roleAppHandler.List)
		admin.POST("/role-applications/:id/approve", roleAppHandler.Approve)
		admin.POST("/role-applications/:id/reject", roleAppHandler.Reject)

		admin.GET("/email-logs", emailLogHandler.List)
	}

	// WebSocket (token in query; admins subscribe to topic=admin)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtService, splitOrigins(cfg.Server.CORSAllowedOrigins)))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
