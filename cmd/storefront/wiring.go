package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/fjod/storefront/internal/ledger"
	"github.com/fjod/storefront/internal/publisher"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var configPath string

type closer func()

func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Options{
		Service:   cfg.Service,
		Env:       cfg.Env,
		Level:     cfg.Log.Level,
		AddSource: cfg.Log.AddSource,
	})
	return cfg, log, nil
}

// openLedgerRepository connects the configured ledger backend and brings its
// schema up to date.
func openLedgerRepository(ctx context.Context, cfg *config.Config, log *slog.Logger) (ledger.Repository, closer, error) {
	switch cfg.Ledger.Backend {
	case "mongo":
		db, err := ledger.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		repo := ledger.NewMongoRepository(db)
		if err := repo.CreateIndexes(ctx); err != nil {
			_ = db.Client().Disconnect(context.Background())
			return nil, nil, fmt.Errorf("create ledger indexes: %w", err)
		}
		log.Info("ledger connected", "backend", "mongo", "database", cfg.Mongo.Database)
		return repo, func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.Client().Disconnect(dctx); err != nil {
				log.Error("mongo disconnect failed", "error", err)
			}
		}, nil

	case "postgres":
		cred := &ledger.Credentials{
			Host:              cfg.DB.Host,
			Port:              cfg.DB.Port,
			User:              cfg.DB.User,
			Password:          cfg.DB.Password,
			DBName:            cfg.DB.Name,
			MigrationsDirPath: cfg.DB.MigrationsDir,
		}
		repo, err := ledger.NewPostgresRepository(cred)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.RunMigrations(cred); err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		log.Info("ledger connected", "backend", "postgres", "host", cfg.DB.Host)
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Error("postgres close failed", "error", err)
			}
		}, nil

	default:
		log.Warn("ledger is in memory, records are lost on restart")
		return ledger.NewMemoryRepository(), func() {}, nil
	}
}

func openCartStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (cart.Storage, closer, error) {
	switch cfg.Cart.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info("cart storage connected", "backend", "redis", "addr", cfg.Redis.Addr)
		return cart.NewRedisStorage(client, cfg.Redis.TTL), func() { _ = client.Close() }, nil

	case "sqlite":
		storage, err := cart.NewSQLiteStorage(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.RunMigrations(cfg.SQLite.MigrationsDir); err != nil {
			_ = storage.Close()
			return nil, nil, err
		}
		log.Info("cart storage opened", "backend", "sqlite", "path", cfg.SQLite.Path)
		return storage, func() { _ = storage.Close() }, nil

	default:
		return cart.NewMemoryStorage(0), func() {}, nil
	}
}

func newGateway(cfg *config.Config, log *slog.Logger) *gateway.Gateway {
	factory := func() (gateway.Processor, error) {
		p, err := gateway.NewStripeProcessor(gateway.StripeConfig{
			SecretKey: cfg.Stripe.SecretKey,
			APIURL:    cfg.Stripe.APIURL,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return gateway.New(factory, gateway.Options{Timeout: cfg.Checkout.PaymentTimeout}, log)
}

// newEventPublisher returns nil when kafka is disabled so the ledger skips events.
func newEventPublisher(cfg *config.Config, log *slog.Logger) (ledger.EventPublisher, closer) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}
	}
	pub := publisher.NewEventPublisher(cfg.Kafka.EventsTopic, cfg.Kafka.Brokers...)
	return pub, func() {
		if err := pub.Close(); err != nil {
			log.Error("event publisher close failed", "error", err)
		}
	}
}
