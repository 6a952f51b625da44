package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/adapter/eonet"
	httpadapter "github.com/couchcryptid/alumni-hazard-monitor/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/alumni-hazard-monitor/internal/adapter/kafka"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/adapter/rediscache"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/adapter/store"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/config"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/feed"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/ingest"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/monitor"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/observability"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/retry"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	overlay, err := config.LoadOverlay(cfg.CatalogFile)
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.New(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		logger.Error("failed to open store", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Init(ctx); err != nil {
		logger.Error("failed to migrate store", "error", err)
		os.Exit(1)
	}

	// Hazard feed, cached in Redis when REDIS_ADDR is set.
	client := eonet.NewClient(cfg.EONETBaseURL, cfg.EONETAPIKey, cfg.EONETTimeout, metrics, logger)
	var cache feed.Cache = feed.NewMemoryCache(cfg.FeedCacheSize, nil)
	if cfg.RedisAddr != "" {
		rdb := rediscache.Open(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		redisCache := rediscache.NewFeedCache(rdb, logger)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, feed cache reads will miss", "addr", cfg.RedisAddr, "error", err)
		}
		cache = redisCache
		logger.Info("redis feed cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.FeedCacheTTL)
	}
	feedService := feed.NewService(client, cache, cfg.FeedCacheTTL, metrics, logger)

	opts := []monitor.Option{}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, monitor.WithPublisher(writer))
		logger.Info("kafka alert publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertTopic)
	}

	m, err := monitor.New(db, feedService, overlay.Categories, monitor.Config{
		FeedQuery:    cfg.FeedQuery,
		ThresholdKm:  cfg.AlertThresholdKm,
		Types:        cfg.AlertTypes,
		Schedule:     cfg.MonitorSchedule,
		PublishRetry: retry.Default,
	}, logger, metrics, opts...)
	if err != nil {
		logger.Error("invalid monitor configuration", "error", err)
		os.Exit(1)
	}

	if cfg.ImportFile != "" {
		if err := importPersons(ctx, cfg, overlay, db, metrics, logger); err != nil {
			logger.Error("startup import failed", "file", cfg.ImportFile, "error", err)
			os.Exit(1)
		}
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, m, db, cfg.APIRateLimit, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start monitor.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := m.Run(ctx); err != nil {
			logger.Error("monitor error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("monitor did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// importPersons loads IMPORT_CSV into the store before monitoring starts.
func importPersons(ctx context.Context, cfg *config.Config, overlay config.Overlay, db store.Store, metrics *observability.Metrics, logger *slog.Logger) error {
	resolver, err := ingest.NewResolver(cfg, overlay.Regions, metrics, logger)
	if err != nil {
		return err
	}
	f, err := os.Open(cfg.ImportFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = ingest.NewImporter(resolver, db, metrics, logger).Import(ctx, f)
	return err
}
