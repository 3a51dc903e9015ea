package registry

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
)

const (
	defaultSweepInterval  = 10 * time.Minute
	defaultSweepBatchSize = 500
)

var (
	registrySweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrpay_registry_sweep_runs_total",
		Help: "Total number of qr registry sweep runs grouped by result.",
	}, []string{"result"})
	registrySweepDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrpay_registry_sweep_deleted_total",
		Help: "Total number of expired qr transactions deleted from the registry.",
	})
	registrySweepLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qrpay_registry_sweep_last_deleted",
		Help: "Number of deleted qr transactions during the last sweep run.",
	})
)

// SweeperOptions задаёт параметры воркера очистки реестра транзакций.
type SweeperOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
}

// SweeperOption настраивает Sweeper.
type SweeperOption func(*SweeperOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) SweeperOption {
	return func(opts *SweeperOptions) {
		opts.Logger = logger
	}
}

// WithInterval задаёт интервал между циклами очистки.
func WithInterval(interval time.Duration) SweeperOption {
	return func(opts *SweeperOptions) {
		opts.Interval = interval
	}
}

// WithBatchSize задаёт размер batch для одного удаления.
func WithBatchSize(batchSize int) SweeperOption {
	return func(opts *SweeperOptions) {
		opts.BatchSize = batchSize
	}
}

// Sweeper периодически удаляет просроченные транзакции из реестра.
// Без него in-memory реестр рос бы неограниченно на всё время жизни процесса;
// Redis-реализация чистится нативным TTL, и воркер ей не нужен.
type Sweeper struct {
	registry  domain.QRTransactionRegistry
	logger    *log.Entry
	interval  time.Duration
	batchSize int
}

// NewSweeper создаёт воркер очистки реестра транзакций.
func NewSweeper(reg domain.QRTransactionRegistry, options ...SweeperOption) *Sweeper {
	opts := SweeperOptions{
		Interval:  defaultSweepInterval,
		BatchSize: defaultSweepBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "qr-registry-sweeper")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultSweepInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultSweepBatchSize
	}

	return &Sweeper{
		registry:  reg,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (s *Sweeper) Run(ctx context.Context) {
	if s.registry == nil {
		s.logger.Warn("qr registry sweeper is disabled: registry is nil")
		return
	}

	s.sweep(ctx, time.Now().UTC())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx, time.Now().UTC())
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, before time.Time) {
	deleted, err := s.DeleteExpired(ctx, before)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		registrySweepRunsTotal.WithLabelValues("error").Inc()
		s.logger.WithError(err).Warn("qr registry sweep failed")
		return
	}

	registrySweepRunsTotal.WithLabelValues("ok").Inc()
	registrySweepLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("qr registry sweep completed")
	}
}

// DeleteExpired удаляет все записи с ExpiresAt <= before порциями batchSize.
func (s *Sweeper) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := s.registry.DeleteExpired(before, s.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			registrySweepDeletedTotal.Add(float64(deleted))
		}

		if deleted < s.batchSize {
			break
		}
	}

	return totalDeleted, nil
}
