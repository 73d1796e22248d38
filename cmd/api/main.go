package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/fetch"
	"github.com/noah-isme/toko-pricing/internal/health"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/quote"
	"github.com/noah-isme/toko-pricing/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	if cfg.Obs.EnablePrometheus {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
		resilience.RegisterMetrics(cfg.Obs.MetricsNamespace, nil)
	}

	tracingEnabled := cfg.Obs.EnableTracing
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "toko-pricing",
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	redisClient := openRedis(cfg, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	quoteService, err := quote.NewService(quote.ServiceConfig{
		Currency:   cfg.CurrencyCode,
		MinorUnits: cfg.CurrencyMinorUnits,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init quote service")
	}

	catalogConfig := catalog.ServiceConfig{
		SourceURL: cfg.CatalogSourceURL,
		Quotes:    quoteService,
		Logger:    &logger,
	}
	if cfg.CatalogEnabled() {
		catalogConfig.Source = newFetchClient(cfg, logger)
		if redisClient != nil {
			catalogConfig.Cache = catalog.NewCache(redisClient, cfg.CatalogCacheTTL, "pricing:catalog:")
			catalogConfig.Lock = lock.Locker{Client: redisClient, Prefix: "pricing:lock:", MaxWait: 2 * cfg.OutboundTimeout}
		}
	} else {
		logger.Warn().Msg("CATALOG_SOURCE_URL not set, catalog endpoints will answer 503")
	}
	catalogService, err := catalog.NewService(catalogConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("init catalog service")
	}

	router := newRouter(routerDeps{
		cfg:            cfg,
		logger:         logger,
		redis:          redisClient,
		quotes:         quoteService,
		catalog:        catalogService,
		tracingEnabled: tracingEnabled,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("currency", cfg.CurrencyCode).Bool("catalog", cfg.CatalogEnabled()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
	logger.Info().Msg("server stopped")
}

// openRedis returns nil when REDIS_URL is unset, and the service then runs
// without cache, refresh lock and rate limiting. A failed startup ping only
// logs: the client is still returned and reconnects on its own, while cache
// reads and the rate limiter fail open in the meantime.
func openRedis(cfg *config.Config, logger zerolog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info().Msg("REDIS_URL not set, cache and rate limiting disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.Obs.EnablePrometheus {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("ping redis failed, cache and rate limiting degraded until it recovers")
	}
	return client
}

func newFetchClient(cfg *config.Config, logger zerolog.Logger) *fetch.Client {
	fetchLogger := logger.With().Str("component", "fetch").Logger()
	breaker := resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRatio, cfg.CircuitOpenFor).
		WithTarget("catalog").
		WithLogger(fetchLogger)
	return fetch.NewClient(resilience.HTTPClient{
		Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Breaker:     breaker,
		BaseBackoff: cfg.RetryBase,
		MaxBackoff:  cfg.RetryMaxBackoff,
		MaxAttempts: cfg.RetryMaxAttempts,
		Jitter:      cfg.RetryJitterPercent,
		Timeout:     cfg.OutboundTimeout,
		Target:      "catalog",
		Logger:      &fetchLogger,
	}, fetchLogger)
}
