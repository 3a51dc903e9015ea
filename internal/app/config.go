package app

import (
	"os"
	"time"

	"github.com/vladislavdragonenkov/qrpay/internal/gateway/bnb"
)

// Config описывает настройки запуска приложения, собираемые из окружения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	PostgresDSN  string
	RedisAddr    string
	KafkaBrokers string

	Gateway bnb.Config

	OperatorToken string
	QRTTL         time.Duration
}

// DefaultConfig возвращает базовые адреса API и HTTP-метрик.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		QRTTL:       24 * time.Hour,
	}
}

// ConfigFromEnv собирает конфигурацию из переменных окружения.
// Пустой POSTGRES_DSN означает in-memory хранилище (dev-режим),
// пустой REDIS_ADDR — in-memory реестр со sweeper'ом,
// пустой KAFKA_BROKERS — работу без событий.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envOr("QRPAY_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envOr("QRPAY_METRICS_ADDR", cfg.MetricsAddr)
	cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.KafkaBrokers = os.Getenv("KAFKA_BROKERS")
	cfg.OperatorToken = os.Getenv("QRPAY_OPERATOR_TOKEN")

	if raw := os.Getenv("QR_TTL"); raw != "" {
		if ttl, err := time.ParseDuration(raw); err == nil && ttl > 0 {
			cfg.QRTTL = ttl
		}
	}

	cfg.Gateway = bnb.Config{
		BaseURL:   os.Getenv("BNB_API_URL"),
		AccountID: os.Getenv("BNB_ACCOUNT_ID"),
		AuthToken: os.Getenv("BNB_AUTH_TOKEN"),
		QRTTL:     cfg.QRTTL,
	}

	return cfg
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
