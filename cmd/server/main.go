package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "cinemabot/offerservice/internal/api/http"
	"cinemabot/offerservice/internal/app"
	"cinemabot/offerservice/internal/history"
	"cinemabot/offerservice/internal/locales"
	"cinemabot/offerservice/internal/metrics"
	"cinemabot/offerservice/internal/providers/tmdb"
	"cinemabot/offerservice/internal/providers/websearch"
	"cinemabot/offerservice/internal/resolve"
	"cinemabot/offerservice/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "offer-service")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "offer-service"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.String("searchEndpoint", cfg.SearchEndpoint),
		slog.Int("searchMaxResults", cfg.SearchMaxResults),
		slog.Float64("searchRateRPS", cfg.SearchRateRPS),
		slog.Int("searchRetryAttempts", cfg.SearchRetryAttempts),
		slog.Int("resolveWorkers", cfg.ResolveWorkers),
		slog.Bool("hasTMDBKey", strings.TrimSpace(cfg.TMDBAPIKey) != ""),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.String("localesFile", cfg.LocalesFile),
	)

	registry, err := locales.Load(cfg.LocalesFile)
	if err != nil {
		logger.Error("locale registry load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("locale registry loaded", slog.Int("locales", registry.Len()))

	redisClient := buildRedisClient(cfg, logger)

	metadataClient := tmdb.NewClient(tmdb.Config{
		APIKey:    cfg.TMDBAPIKey,
		BaseURL:   cfg.TMDBBaseURL,
		UserAgent: cfg.UserAgent,
		Client:    &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Redis:     redisClient,
		CacheTTL:  cfg.TMDBCacheTTL,
	})
	if !metadataClient.Enabled() {
		logger.Warn("tmdb api key not configured, metadata requests will fail")
	}

	searchClient := websearch.NewClient(websearch.Config{
		Endpoint:  cfg.SearchEndpoint,
		UserAgent: cfg.UserAgent,
		Client:    &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	})

	resolverOpts := []resolve.ServiceOption{
		resolve.WithLogger(logger),
		resolve.WithMaxResults(cfg.SearchMaxResults),
		resolve.WithWorkers(cfg.ResolveWorkers),
	}
	if cfg.SearchRateRPS > 0 {
		resolverOpts = append(resolverOpts, resolve.WithSearchRateLimit(cfg.SearchRateRPS, cfg.ResolveWorkers))
	}
	if cfg.SearchRetryAttempts > 1 {
		resolverOpts = append(resolverOpts, resolve.WithRetry(resolve.BackoffRetry(cfg.SearchRetryAttempts)))
	}
	resolver := resolve.NewService(metadataClient, searchClient, registry, resolverOpts...)

	historyOpts := []history.Option{history.WithLimit(cfg.HistoryLimit)}
	if redisClient != nil {
		historyOpts = append(historyOpts, history.WithRedis(redisClient))
	}
	historyService := history.NewService(historyOpts...)

	handler := apihttp.NewServer(resolver, registry,
		apihttp.WithLogger(logger),
		apihttp.WithHistory(historyService),
	).Handler()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Offer resolution fans out many outbound searches; give slow
		// resolutions headroom beyond the per-backend timeouts.
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("offer service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.RequestTimeout),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("offer service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildRedisClient(cfg app.Config, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, running without redis", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, running without redis", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}
