package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/grainly/storefront/internal/domain/admin"
	"github.com/grainly/storefront/internal/domain/cart"
	"github.com/grainly/storefront/internal/domain/order"
	"github.com/grainly/storefront/internal/domain/stats"
	"github.com/grainly/storefront/internal/events"
	"github.com/grainly/storefront/internal/handler"
	"github.com/grainly/storefront/internal/storage/mongodb"
	"github.com/grainly/storefront/pkg/ginmiddleware"
	"github.com/grainly/storefront/pkg/health"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// MongoDB connection + index bootstrap.
	db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return errors.Wrap(err, "connect mongodb")
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			lg.Warn("Mongo disconnect error", zap.Error(err))
		}
	}()

	if err := db.EnsureIndexes(ctx); err != nil {
		return errors.Wrap(err, "ensure indexes")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadiness("mongodb", 5*time.Second, health.Ping(db))
	healthSvc.AddLiveness("goroutines", time.Second, health.MaxGoroutines(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Optional Redis cache for dashboard stats.
	var cache redis.UniversalClient
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			lg.Warn("Redis unreachable, dashboard cache disabled", zap.Error(err))
		} else {
			cache = rdb
			defer rdb.Close()
		}
	}

	// Optional AMQP publisher for order lifecycle events.
	var publisher order.EventPublisher
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			lg.Warn("AMQP unreachable, order events disabled", zap.Error(err))
		} else {
			publisher = amqpPub
			defer amqpPub.Close()
		}
	}

	// Repositories.
	productRepo := mongodb.NewProductRepository(db)
	cartRepo := mongodb.NewCartRepository(db)
	orderRepo := mongodb.NewOrderRepository(db)
	adminRepo := mongodb.NewAdminRepository(db)
	blogRepo := mongodb.NewBlogRepository(db)

	// Domain services.
	cartService := cart.NewService(cartRepo, productRepo)
	orderService := order.NewService(orderRepo, cartRepo, productRepo, publisher)
	adminService := admin.NewService(adminRepo, []byte(cfg.JWTSecret), cfg.TokenTTL)
	statsService := stats.NewService(productRepo, orderRepo, blogRepo, cartRepo, cache)

	// HTTP engine: middleware stack, health endpoints, metrics, API routes.
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		ginmiddleware.Recovery(),
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.Origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization", "X-Request-ID"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           24 * time.Hour,
		}),
		ginmiddleware.RateLimitWithCleanup(ctx, ginmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		ginmiddleware.RequestID(),
		ginmiddleware.InjectLogger(zctx.From(ctx)),
		ginmiddleware.Metrics(),
		ginmiddleware.LogRequests(),
	)

	engine.GET("/livez", gin.WrapF(healthSvc.HandleLive))
	engine.GET("/readyz", gin.WrapF(healthSvc.HandleReady))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handler.NewHandler(productRepo, cartService, orderService, blogRepo, adminService, statsService)
	h.Register(engine)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           engine,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
