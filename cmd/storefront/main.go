package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etrshop/etr-brand/internal/catalog"
	"github.com/etrshop/etr-brand/internal/config"
	transport "github.com/etrshop/etr-brand/internal/http"
	"github.com/etrshop/etr-brand/internal/logger"
	"github.com/etrshop/etr-brand/internal/metrics"
	"github.com/etrshop/etr-brand/internal/poller"
	"github.com/etrshop/etr-brand/internal/repository"
	"github.com/etrshop/etr-brand/internal/service"
	"github.com/etrshop/etr-brand/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type closableStore interface {
	storage.Store
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: cfg.App.ServiceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	zl := log.Zerolog()

	ctx := context.Background()

	cat, err := catalog.Load(cfg.App.CatalogPath)
	if err != nil {
		zl.Fatal().Err(err).Msg("failed to load catalog")
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		zl.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open storage")
	}
	defer store.Close()
	zl.Info().Str("driver", cfg.Storage.Driver).Msg("storage ready")

	var substrate storage.Store = store
	if cfg.Breaker.Enabled && (cfg.Storage.Driver == config.DriverRedis || cfg.Storage.Driver == config.DriverMongo) {
		substrate = storage.WithBreaker(store, storage.BreakerSettings{
			Name:             "cart-storage-" + cfg.Storage.Driver,
			MaxFailures:      cfg.Breaker.MaxFailures,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
			HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
		})
	}

	m := metrics.New()
	repo := repository.NewCartRepository(substrate, log, m)
	carts := service.NewCartService(repo, log, m)

	handler, err := transport.NewStoreHandler(carts, cat, log, cfg.HTTP.RequestTimeout)
	if err != nil {
		zl.Fatal().Err(err).Msg("failed to build handlers")
	}
	router := transport.NewRouter(handler, log, transport.RouterOptions{
		KeyPrefix:      cfg.Storage.KeyPrefix,
		CookieSecure:   cfg.HTTP.CookieSecure,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Metrics:        m.Handler(),
	})

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	if cfg.Kafka.Enabled() {
		p := poller.NewPoller(carts, log, poller.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer p.Close()
		go p.Run(pollCtx)
		zl.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("payment poller started")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      otelhttp.NewHandler(router, cfg.App.ServiceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info().Str("port", cfg.HTTP.Port).Msg("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info().Msg("shutting down server...")
	stopPolling()
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error().Err(err).Msg("server forced to shutdown")
	}
	zl.Info().Msg("server exited")
}

func openStore(ctx context.Context, cfg config.StorageConfig) (closableStore, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return storage.NewMemoryStore(), nil

	case config.DriverSQLite:
		s, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.RunMigrations(); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return storage.NewRedisStore(client, cfg.RedisTTL), nil

	case config.DriverMongo:
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		s := storage.NewMongoStore(db, cfg.MongoTTL)
		if err := s.CreateIndexes(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
