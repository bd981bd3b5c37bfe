package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/fibersight-alerts-service/internal/adapter/cosmic"
	httpadapter "github.com/couchcryptid/fibersight-alerts-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/fibersight-alerts-service/internal/adapter/kafka"
	"github.com/couchcryptid/fibersight-alerts-service/internal/adapter/openweather"
	slackadapter "github.com/couchcryptid/fibersight-alerts-service/internal/adapter/slack"
	"github.com/couchcryptid/fibersight-alerts-service/internal/adapter/sqlite"
	"github.com/couchcryptid/fibersight-alerts-service/internal/config"
	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
	"github.com/couchcryptid/fibersight-alerts-service/internal/feed"
	"github.com/couchcryptid/fibersight-alerts-service/internal/observability"
	"github.com/couchcryptid/fibersight-alerts-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("failed to resolve timezone", "error", err)
		os.Exit(1)
	}
	thresholds := domain.Thresholds{
		HighTemp:     cfg.ThresholdHighTemp,
		LowTemp:      cfg.ThresholdLowTemp,
		LowHumidity:  cfg.ThresholdLowHumidity,
		HighHumidity: cfg.ThresholdHighHumidity,
	}
	if err := thresholds.Validate(); err != nil {
		logger.Warn("thresholds overlap", "error", err)
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open alert store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}

	// Forecast source, cached unless FORECAST_CACHE_TTL is 0.
	var source domain.ForecastSource = openweather.NewClient(cfg.ForecastAPIKey, cfg.ForecastBaseURL, cfg.ForecastTimeout, metrics, logger)
	if cfg.ForecastCacheTTL > 0 {
		source = openweather.NewCachedForecaster(source, cfg.ForecastCacheTTL, clock, metrics)
		logger.Info("forecast cache enabled", "ttl", cfg.ForecastCacheTTL)
	}
	site := domain.Coordinates{Lat: cfg.ForecastLat, Lon: cfg.ForecastLon}
	evaluator := pipeline.NewForecastEvaluator(source, thresholds, site, loc, cfg.FiberIDs, logger, metrics)

	alertFeed := feed.New(cfg.PageSize, cfg.NotificationHistory, clock)
	notifiers := domain.Notifiers{alertFeed}
	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, slackadapter.NewNotifier(cfg.SlackWebhookURL, cfg.SlackChannel, logger))
		logger.Info("slack notifications enabled")
	}

	// Alert event stream (feature-flagged via KAFKA_ENABLED).
	var (
		publisher pipeline.AlertPublisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		publisher = writer
		logger.Info("kafka alert publishing enabled", "topic", cfg.KafkaAlertTopic)
	}

	refresher := pipeline.NewRefresher(pipeline.RefresherOptions{
		Store:     store,
		Evaluator: evaluator,
		Feed:      alertFeed,
		Notifier:  notifiers,
		Publisher: publisher,
		ListLimit: cfg.StoreListLimit,
		Clock:     clock,
	}, logger, metrics)
	badge := pipeline.NewBadgePoller(store, alertFeed, cfg.BadgeLimit, cfg.BadgePollInterval, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, refresher, alertFeed, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		if err := refresher.Run(ctx, cfg.RefreshInterval); err != nil {
			logger.Error("refresher error", "error", err)
		}
	})
	wg.Go(func() {
		if err := badge.Run(ctx); err != nil {
			logger.Error("badge poller error", "error", err)
		}
	})

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closeStore.Close(); err != nil {
		logger.Error("alert store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the alert store selected by STORE_BACKEND.
func openStore(cfg *config.Config, logger *slog.Logger) (pipeline.AlertStore, io.Closer, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		store := cosmic.NewStore(cosmic.Options{
			BaseURL:    cfg.CosmicBaseURL,
			BucketSlug: cfg.CosmicBucketSlug,
			ReadKey:    cfg.CosmicReadKey,
			WriteKey:   cfg.CosmicWriteKey,
			Timeout:    cfg.CosmicTimeout,
		}, logger)
		logger.Info("cosmic alert store enabled", "bucket", cfg.CosmicBucketSlug)
		return store, nopCloser{}, nil
	}
}
