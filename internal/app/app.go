// Package app wires configuration, storage, domain services, and the HTTP
// server into a running API process.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/xenking/mini-store/internal/domain/auth"
	"github.com/xenking/mini-store/internal/domain/cart"
	"github.com/xenking/mini-store/internal/domain/order"
	"github.com/xenking/mini-store/internal/domain/product"
	"github.com/xenking/mini-store/internal/domain/user"
	"github.com/xenking/mini-store/internal/handler"
	storemongo "github.com/xenking/mini-store/internal/storage/mongo"
	"github.com/xenking/mini-store/internal/storage/rediscache"
	"github.com/xenking/mini-store/pkg/health"
	"github.com/xenking/mini-store/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles
// graceful shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// MongoDB connection + indexes.
	db, err := storemongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return errors.Wrap(err, "connect mongo")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			lg.Error("Close mongo", zap.Error(err))
		}
	}()

	if err := db.EnsureIndexes(ctx); err != nil {
		return errors.Wrap(err, "ensure indexes")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("mongo", 5*time.Second, db.Ping)
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.SetReady(true)

	// Repositories. The product repository optionally gets a Redis
	// read-through cache in front of it.
	var products product.Repository = storemongo.NewProductRepository(db)
	if cfg.RedisAddr != "" {
		cache := rediscache.New(products, redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		}), cfg.CacheTTL)
		defer func() {
			if err := cache.Close(); err != nil {
				lg.Error("Close redis", zap.Error(err))
			}
		}()
		healthSvc.AddReadinessCheck("redis", 5*time.Second, cache.Ping)
		products = cache
	}
	cartRepo := storemongo.NewCartRepository(db)
	orderRepo := storemongo.NewOrderRepository(db)
	userRepo := storemongo.NewUserRepository(db)

	// Domain services.
	productService := product.NewService(products)
	cartService := cart.NewService(cartRepo, products)
	orderService := order.NewService(orderRepo, products,
		order.CartClearerFunc(func(ctx context.Context, userID string) error {
			_, err := cartService.Clear(ctx, userID)
			return err
		}))
	userService := user.NewService(userRepo, products)

	// HTTP routes: health probes + API.
	verifier := auth.NewTokenVerifier([]byte(cfg.AuthSecret))
	h := handler.NewHandler(productService, cartService, orderService, userService, verifier, userRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:       cfg.CORS.MaxAge,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("store-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
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
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
