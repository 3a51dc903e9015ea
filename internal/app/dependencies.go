package app

import (
	"context"
	"fmt"

	redisclient "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
	"github.com/vladislavdragonenkov/qrpay/internal/gateway/bnb"
	"github.com/vladislavdragonenkov/qrpay/internal/storage/memory"
	"github.com/vladislavdragonenkov/qrpay/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/qrpay/internal/storage/redis"
)

// Dependencies содержит хранилища и адаптеры приложения.
type Dependencies struct {
	Repo         domain.OrderRepository
	TimelineRepo domain.TimelineRepository
	Registry     domain.QRTransactionRegistry
	Gateway      domain.PaymentGateway
	Logger       *log.Entry

	// NeedsSweeper — in-memory реестр не чистится сам, нужен воркер.
	NeedsSweeper bool

	pgStore     *postgres.Store
	redisClient *redisclient.Client
}

// NewDependencies инициализирует зависимости согласно конфигурации.
// Пустые DSN/адреса выбирают in-memory реализации (dev-режим).
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		deps.pgStore = store
		deps.Repo = postgres.NewOrderRepository(store)
		deps.TimelineRepo = postgres.NewTimelineRepository(store)
		logger.Info("using postgres order store")
	} else {
		deps.Repo = memory.NewOrderRepository()
		deps.TimelineRepo = memory.NewTimelineRepository()
		logger.Info("using in-memory order store")
	}

	if cfg.RedisAddr != "" {
		client, err := redisstore.Open(ctx, cfg.RedisAddr)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		deps.redisClient = client
		deps.Registry = redisstore.NewQRRegistry(client)
		logger.Info("using redis qr registry")
	} else {
		deps.Registry = memory.NewQRRegistry()
		deps.NeedsSweeper = true
		logger.Info("using in-memory qr registry")
	}

	if !cfg.Gateway.Configured() {
		logger.Warn("bnb gateway is not configured, qr minting degrades to mock intents")
	}
	deps.Gateway = bnb.NewClient(cfg.Gateway, logger.WithField("component", "bnb-gateway"))

	return deps, nil
}

// PostgresStore возвращает стор для health-проверок, nil в dev-режиме.
func (d *Dependencies) PostgresStore() *postgres.Store {
	return d.pgStore
}

// RedisClient возвращает клиент для health-проверок, nil в dev-режиме.
func (d *Dependencies) RedisClient() *redisclient.Client {
	return d.redisClient
}

// Close освобождает подключения к внешним хранилищам.
func (d *Dependencies) Close() {
	if d.redisClient != nil {
		if err := d.redisClient.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.pgStore != nil {
		if err := d.pgStore.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
