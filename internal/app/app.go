package app

import (
	"context"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rowanlk/storefront-gateway/internal/backend"
	"github.com/rowanlk/storefront-gateway/internal/cache"
	"github.com/rowanlk/storefront-gateway/internal/catalog"
	"github.com/rowanlk/storefront-gateway/internal/domain/cart"
	"github.com/rowanlk/storefront-gateway/internal/domain/coupon"
	"github.com/rowanlk/storefront-gateway/internal/handler"
	"github.com/rowanlk/storefront-gateway/internal/repository"
	"github.com/rowanlk/storefront-gateway/internal/session"
	"github.com/rowanlk/storefront-gateway/pkg/health"
	"github.com/rowanlk/storefront-gateway/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles
// graceful shutdown. It is the single wiring point for the gateway.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations for the device keystore.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Commerce API client.
	apiClient, err := backend.New(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	}, lg)
	if err != nil {
		return errors.Wrap(err, "create commerce client")
	}

	// Optional Redis-backed catalog cache.
	var productCache *cache.ProductCache
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis URL")
		}
		rdb := redis.NewClient(opt)
		defer func() { _ = rdb.Close() }()
		productCache = cache.NewProductCache(rdb, cfg.Cache.ListingTTL)
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddReadinessCheck("commerce-api", 5*time.Second, health.PingCheck(apiClient))
	if productCache != nil {
		healthSvc.AddReadinessCheck("redis", 5*time.Second, health.PingCheck(productCache))
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Coupon validation: the static table plus any offline campaign sets.
	validator, err := buildValidator(ctx, lg, cfg.Coupons)
	if err != nil {
		return errors.Wrap(err, "build coupon validator")
	}

	// Sessions over the durable device keystore.
	pricing := cart.Pricing{
		FreeShippingThreshold: decimal.NewFromInt(cfg.Pricing.FreeShippingThreshold),
		ShippingFee:           decimal.NewFromInt(cfg.Pricing.ShippingFee),
	}
	sessions := session.NewManager(
		session.WrapClient(apiClient),
		repository.NewTokenRepository(pool),
		repository.NewWishlistRepository(pool),
		validator,
		session.Config{IdleTTL: cfg.Session.IdleTTL, Pricing: pricing},
		lg,
	)
	sessions.StartEviction(ctx, cfg.Session.EvictInterval)

	// Typed-nil guard: catalog takes an interface, nil must stay nil.
	var listCache catalog.Cache
	if productCache != nil {
		listCache = productCache
	}
	cat := catalog.New(apiClient, listCache, lg)
	h := handler.New(cat, sessions, apiClient, lg)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-gateway", m),
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

// buildValidator assembles the coupon validator from the static table and,
// when configured, bulk campaign code files.
func buildValidator(ctx context.Context, lg *zap.Logger, cfg CouponConfig) (coupon.Validator, error) {
	v := coupon.NewTableValidator(coupon.DefaultTable())
	if cfg.OfflineDir == "" {
		return v, nil
	}

	var paths []string
	for _, pattern := range []string{"*.txt", "*.gz"} {
		matches, err := filepath.Glob(filepath.Join(cfg.OfflineDir, pattern))
		if err != nil {
			return nil, errors.Wrap(err, "glob campaign files")
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no campaign code files in %s", cfg.OfflineDir)
	}
	sort.Strings(paths)

	start := time.Now()
	set, err := coupon.LoadCodeSet(ctx, paths, coupon.CodeSetConfig{
		Capacity: cfg.Capacity,
		Quorum:   cfg.Quorum,
	})
	if err != nil {
		return nil, errors.Wrap(err, "load campaign codes")
	}
	lg.Info("Campaign code sets loaded",
		zap.Int("files", len(paths)),
		zap.Duration("took", time.Since(start)),
	)

	return v.WithOfflineCodes(set, coupon.Coupon{
		Kind:        coupon.KindPercentage,
		Value:       decimal.NewFromInt(10),
		Description: "Campaign promo code",
	}), nil
}
