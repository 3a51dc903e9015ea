package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/qrpay/internal/health"
	"github.com/vladislavdragonenkov/qrpay/internal/metrics"
	"github.com/vladislavdragonenkov/qrpay/internal/service/orders"
	"github.com/vladislavdragonenkov/qrpay/internal/service/payment"
	"github.com/vladislavdragonenkov/qrpay/internal/service/reconcile"
	"github.com/vladislavdragonenkov/qrpay/internal/service/registry"
	"github.com/vladislavdragonenkov/qrpay/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/qrpay/internal/version"
)

// Run поднимает API- и metrics-серверы и блокируется до отмены контекста.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	// Типизированный nil в интерфейсе не считался бы отключённым publisher'ом.
	var orderEvents orders.EventPublisher
	var paymentEvents payment.EventPublisher
	if kafkaProducer != nil {
		orderEvents = kafkaProducer
		paymentEvents = kafkaProducer
	}

	paymentMetrics := metrics.NewPaymentMetrics()
	serviceLogger := logger.WithField("layer", "service")

	stateMachine := orders.NewStateMachine(
		deps.Repo, deps.TimelineRepo, orderEvents, paymentMetrics,
		serviceLogger.WithField("component", "order-state-machine"),
	)
	intents := payment.NewIntentService(
		deps.Gateway, deps.Registry, paymentEvents, paymentMetrics, cfg.QRTTL,
		serviceLogger.WithField("component", "payment-intents"),
	)
	engine := reconcile.NewEngine(
		deps.Gateway, paymentMetrics,
		serviceLogger.WithField("component", "reconciliation-engine"),
	)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	registerHealthCheckers(healthHandler, cfg, deps)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Orders:        httpapi.NewOrdersHandler(stateMachine, logger.WithField("layer", "http")),
		Payment:       httpapi.NewPaymentHandler(intents, engine, logger.WithField("layer", "http")),
		Health:        healthHandler,
		OperatorToken: cfg.OperatorToken,
	})

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	if deps.NeedsSweeper {
		sweeper := registry.NewSweeper(deps.Registry,
			registry.WithLogger(logger.WithField("component", "qr-registry-sweeper")),
		)
		go sweeper.Run(ctx)
	}

	apiSrv := httpapi.NewServer(cfg.HTTPAddr, router)
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// registerHealthCheckers подключает проверки внешних зависимостей.
func registerHealthCheckers(handler *healthcheck.Handler, cfg Config, deps *Dependencies) {
	if store := deps.PostgresStore(); store != nil {
		handler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return store.Ping(ctx)
		}))
	}
	if client := deps.RedisClient(); client != nil {
		handler.RegisterChecker("redis", healthcheck.NewSimpleChecker("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return client.Ping(ctx).Err()
		}))
	}
	handler.RegisterChecker("gateway", healthcheck.NewDegradedChecker("gateway", func() error {
		if !cfg.Gateway.Configured() {
			return domain.ErrGatewayNotConfigured
		}
		return nil
	}))
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
