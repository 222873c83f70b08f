package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/tripsettle/internal/auth"
	"github.com/mmynk/tripsettle/internal/cache"
	"github.com/mmynk/tripsettle/internal/config"
	"github.com/mmynk/tripsettle/internal/currency"
	"github.com/mmynk/tripsettle/internal/ledger"
	"github.com/mmynk/tripsettle/internal/metrics"
	"github.com/mmynk/tripsettle/internal/middleware"
	"github.com/mmynk/tripsettle/internal/service"
	"github.com/mmynk/tripsettle/internal/settlement"
	"github.com/mmynk/tripsettle/internal/storage"
	"github.com/mmynk/tripsettle/internal/storage/postgres"
	"github.com/mmynk/tripsettle/internal/storage/sqlite"
	"github.com/mmynk/tripsettle/pkg/logging"
)

func main() {
	logging.Setup()

	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := seedRates(ctx, store, cfg.BaseRates); err != nil {
		return err
	}

	summaryCache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	engine := settlement.New(settlement.Deps{
		Travels:     store,
		Ledger:      store,
		Settlements: store,
		Cache:       summaryCache,
		Timeout:     cfg.StoreTimeout,
	})
	expenses := ledger.NewService(store, currency.NewNormalizer(store), engine)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)

	mux := http.NewServeMux()
	service.Register(mux, service.Services{
		Settlements: service.NewSettlementService(engine),
		Travels:     service.NewTravelService(store, engine),
		Expenses:    service.NewExpenseService(expenses),
	}, connect.WithInterceptors(
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(slog.Default()),
	))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		slog.Info("Storage initialized", "driver", cfg.DBDriver)
		return store, nil
	default:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		slog.Info("Storage initialized", "driver", cfg.DBDriver, "database", cfg.DBPath)
		return store, nil
	}
}

// seedRates writes the configured base rates into the rate table.
func seedRates(ctx context.Context, store storage.RateStore, list string) error {
	if list == "" {
		return nil
	}
	rates, err := currency.ParseRates(list)
	if err != nil {
		return fmt.Errorf("invalid BASE_RATES: %w", err)
	}
	for key, rate := range rates.Pairs() {
		from, to := currency.SplitPair(key)
		if err := store.SetRate(ctx, from, to, rate); err != nil {
			return fmt.Errorf("failed to seed rate %s: %w", key, err)
		}
	}
	slog.Info("Exchange rates seeded", "count", len(rates.Pairs()))
	return nil
}

func openCache(ctx context.Context, cfg *config.Config) (cache.SummaryCache, func(), error) {
	if cfg.RedisAddr == "" {
		slog.Info("Summary cache initialized", "backend", "memory", "ttl", cfg.CacheTTL)
		return cache.NewMemoryCache(cfg.CacheTTL), func() {}, nil
	}

	rc, err := cache.NewRedisCache(ctx, cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.CacheTTL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("Summary cache initialized", "backend", "redis", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	return rc, func() { rc.Close() }, nil
}

// loggingMiddleware logs all incoming requests at debug level. RPC outcomes
// are logged by the Connect interceptor.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
