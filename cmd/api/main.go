package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/raihanm-dev/auth-service/api/swagger"
	"github.com/raihanm-dev/auth-service/internal/handler"
	"github.com/raihanm-dev/auth-service/internal/middleware"
	"github.com/raihanm-dev/auth-service/internal/repository"
	"github.com/raihanm-dev/auth-service/internal/service"
	"github.com/raihanm-dev/auth-service/pkg/cache"
	"github.com/raihanm-dev/auth-service/pkg/config"
	"github.com/raihanm-dev/auth-service/pkg/database"
	"github.com/raihanm-dev/auth-service/pkg/logger"
	corsmiddleware "github.com/raihanm-dev/auth-service/pkg/middleware/cors"
	reqidmiddleware "github.com/raihanm-dev/auth-service/pkg/middleware/requestid"
)

// @title Auth Service API
// @version 1.0.0
// @description Registration and token lifecycle service with silent access token refresh
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.TokenStore.Backend == config.TokenStoreRedis {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			// The store factory degrades to the in-memory backend.
			logr.Warn("failed to connect to redis", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	tokenStore := repository.NewTokenStore(cfg.TokenStore, cfg.JWT.AccessExpiration, redisClient, logr)

	validate := validator.New()
	userRepo := repository.NewUserRepository(db)
	userSvc := service.NewUserService(userRepo, validate, logr)
	tokenSvc := service.NewTokenService(cfg.JWT, tokenStore, logr)
	authSvc := service.NewAuthService(userSvc, tokenSvc, logr)
	metricsSvc := service.NewMetricsService()

	secureCookies := cfg.CookieSecure
	authHandler := handler.NewAuthHandler(authSvc, metricsSvc, cfg.JWT, secureCookies)
	adminHandler := handler.NewAdminHandler(tokenStore)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "database"})
			return
		}
		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "redis"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/refresh", authHandler.Refresh)

	protected := auth.Group("")
	protected.Use(middleware.JWT(tokenSvc, metricsSvc, secureCookies))
	protected.POST("/logout", authHandler.Logout)
	protected.GET("/me", authHandler.Me)

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(tokenSvc, metricsSvc, secureCookies), middleware.RequireRoles("admin"))
	admin.POST("/tokens/cleanup", adminHandler.CleanupTokens)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runTokenSweeper(ctx, tokenStore, cfg.TokenStore.CleanupInterval, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// runTokenSweeper periodically removes lapsed blacklist entries and refresh
// token records until ctx is cancelled.
func runTokenSweeper(ctx context.Context, store repository.TokenStore, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			blacklisted := store.CleanupExpiredTokens(ctx)
			refreshed := store.CleanupExpiredRefreshTokens(ctx)
			if blacklisted > 0 || refreshed > 0 {
				logr.Info("token sweep",
					zap.Int("blacklist_removed", blacklisted),
					zap.Int("refresh_removed", refreshed))
			}
		}
	}
}
