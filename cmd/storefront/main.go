package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/pkg/config"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/fjod/go_cart/storefront/pkg/metrics"
	"github.com/fjod/go_cart/storefront/pkg/shutdown"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service: "storefront",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("storefront exited")
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()

	// Catalog repository
	repo, closeRepo, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	// Cart storage
	cartStorage, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	serverMetrics := metrics.NewServerMetrics("api")
	opts := []session.Option{
		session.WithMetrics(serverMetrics),
		session.WithStorageTimeout(cfg.RequestTimeout),
	}

	g, gctx := errgroup.WithContext(ctx)

	// The publisher outlives the API server so events from draining
	// requests are still written; shutdown stops it last.
	pubCtx, stopPublisher := context.WithCancel(context.Background())
	defer stopPublisher()

	if len(cfg.KafkaBrokers) > 0 {
		pub := publisher.New(publisher.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...), 1024, log)
		opts = append(opts, session.WithPublisher(pub))
		g.Go(func() error {
			pub.Run(pubCtx)
			return pub.Close()
		})
		log.Info("publishing cart events", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	sessions := session.NewManager(cartStorage, log, opts...)

	catalogSrv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.CatalogPort),
		Handler:      catalog.NewServer(repo, cfg.CatalogDelay, log).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	apiSrv := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.HTTPPort),
		Handler: h.NewRouter(h.RouterConfig{
			Sessions:           sessions,
			Catalog:            catalog.NewClient(cfg.CatalogAddr, cfg.RequestTimeout, log),
			Metrics:            serverMetrics,
			Logger:             log,
			RequestTimeout:     cfg.RequestTimeout,
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// the catalog must be listening before the storefront serves requests
	g.Go(func() error {
		log.Info("catalog server starting", "addr", catalogSrv.Addr, "driver", cfg.CatalogDriver)
		if err := catalogSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("catalog server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := waitHealthy(gctx, "http://localhost"+catalogSrv.Addr+"/health"); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}
		log.Info("storefront API starting", "addr", apiSrv.Addr, "storage", cfg.StorageDriver)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("storefront server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := errors.Join(
			apiSrv.Shutdown(shutdownCtx),
			sessions.Close(shutdownCtx),
			catalogSrv.Shutdown(shutdownCtx),
		)
		stopPublisher()
		return err
	})

	return g.Wait()
}

func openCatalog(ctx context.Context, cfg config.Config) (catalog.Repository, func(), error) {
	seed, err := catalog.SeedProducts()
	if err != nil {
		return nil, nil, err
	}

	switch cfg.CatalogDriver {
	case config.CatalogMemory:
		return catalog.NewMemoryRepository(seed), func() {}, nil
	case config.CatalogSQLite:
		repo, err := catalog.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.RunMigrations(); err != nil {
			_ = repo.Close()
			return nil, nil, fmt.Errorf("catalog migrations: %w", err)
		}
		if err := repo.SeedIfEmpty(ctx, seed); err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog driver %q", cfg.CatalogDriver)
	}
}

func openStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (storage.CartStorage, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		return storage.NewMemoryStorage(), func() {}, nil

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
		return storage.NewRedisStorage(client, cfg.CartTTL), func() { _ = client.Close() }, nil

	case config.StorageMongo:
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		s := storage.NewMongoStorage(db)
		if err := s.CreateIndexes(ctx); err != nil {
			log.Warn("mongo index creation failed", "error", err)
		}
		log.Info("connected to MongoDB", "db", cfg.MongoDBName)
		return s, func() { _ = db.Client().Disconnect(context.Background()) }, nil

	case config.StoragePostgres:
		s, err := storage.NewPostgresStorage(&storage.Credentials{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		log.Info("connected to Postgres", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)
		return s, func() { _ = s.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// waitHealthy polls url until it answers 200 or ctx ends.
func waitHealthy(ctx context.Context, url string) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if resp, err := http.DefaultClient.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
