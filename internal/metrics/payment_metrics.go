package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics содержит метрики платёжного контура и переходов заказов.
type PaymentMetrics struct {
	// Счётчики переходов состояния заказа
	orderTransitions *prometheus.CounterVec

	// Счётчики выписанных QR по источнику (bnb/mock/fallback)
	qrMinted *prometheus.CounterVec

	// Метрики реконсиляции
	reconciliationRuns *prometheus.CounterVec
	reconciliationQRs  *prometheus.CounterVec

	// Гистограммы времени выполнения
	reconciliationDuration prometheus.Histogram
	checkBatchSize         prometheus.Histogram

	// Gauge для активных батчевых проверок
	activeChecks prometheus.Gauge
}

// NewPaymentMetrics создаёт новый экземпляр метрик платёжного контура.
func NewPaymentMetrics() *PaymentMetrics {
	return newPaymentMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newPaymentMetricsWithRegisterer(registerer prometheus.Registerer) *PaymentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PaymentMetrics{
		orderTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "qrpay_order_transitions_total",
			Help: "Total number of order state transitions grouped by operation and result",
		}, []string{"operation", "result"}),
		qrMinted: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "qrpay_qr_minted_total",
			Help: "Total number of minted QR payment intents grouped by source",
		}, []string{"source"}),
		reconciliationRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "qrpay_reconciliation_runs_total",
			Help: "Total number of reconciliation runs grouped by result",
		}, []string{"result"}),
		reconciliationQRs: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "qrpay_reconciliation_qrs_total",
			Help: "Total number of gateway QRs seen during reconciliation grouped by status label",
		}, []string{"status"}),
		reconciliationDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "qrpay_reconciliation_duration_seconds",
			Help:    "Duration of reconciliation summaries in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		checkBatchSize: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "qrpay_check_batch_size",
			Help:    "Number of QR ids per batch status check",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		activeChecks: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "qrpay_active_batch_checks",
			Help: "Number of currently running batch status checks",
		}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordTransition фиксирует исход перехода состояния заказа.
func (m *PaymentMetrics) RecordTransition(operation, result string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(operation, result).Inc()
}

// RecordQRMinted фиксирует выписанный интент по источнику.
func (m *PaymentMetrics) RecordQRMinted(source string) {
	if m == nil {
		return
	}
	m.qrMinted.WithLabelValues(source).Inc()
}

// RecordReconciliationRun фиксирует запуск реконсиляции и её длительность.
func (m *PaymentMetrics) RecordReconciliationRun(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.reconciliationRuns.WithLabelValues(result).Inc()
	m.reconciliationDuration.Observe(duration.Seconds())
}

// RecordReconciliationQR фиксирует QR шлюза по доменной метке статуса.
func (m *PaymentMetrics) RecordReconciliationQR(statusLabel string) {
	if m == nil {
		return
	}
	m.reconciliationQRs.WithLabelValues(statusLabel).Inc()
}

// RecordBatchCheckStarted фиксирует начало батчевой проверки статусов.
func (m *PaymentMetrics) RecordBatchCheckStarted(size int) {
	if m == nil {
		return
	}
	m.checkBatchSize.Observe(float64(size))
	m.activeChecks.Inc()
}

// RecordBatchCheckFinished фиксирует завершение батчевой проверки.
func (m *PaymentMetrics) RecordBatchCheckFinished() {
	if m == nil {
		return
	}
	m.activeChecks.Dec()
}
