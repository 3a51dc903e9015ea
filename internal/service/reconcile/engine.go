package reconcile

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
	"github.com/vladislavdragonenkov/qrpay/internal/metrics"
)

// Engine сверяет состояние QR на стороне шлюза с локальным учётом.
// Только чтение: движок никогда не мутирует заказы.
type Engine struct {
	gateway domain.PaymentGateway
	metrics *metrics.PaymentMetrics
	logger  *log.Entry
	now     func() time.Time
}

// NewEngine конструирует движок реконсиляции.
func NewEngine(gateway domain.PaymentGateway, paymentMetrics *metrics.PaymentMetrics, logger *log.Entry) *Engine {
	if logger == nil {
		logger = log.WithField("component", "reconciliation-engine")
	}
	return &Engine{
		gateway: gateway,
		metrics: paymentMetrics,
		logger:  logger,
		now:     time.Now,
	}
}

// QRDetail — запись о QR шлюза в терминах доменной сводки.
type QRDetail struct {
	QRID        string
	AmountMinor int64
	Currency    string
	Gloss       string
	StatusLabel string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	PaidAt      *time.Time
	SingleUse   bool
}

// Summary — агрегаты по календарной дате.
type Summary struct {
	TotalAmountMinor int64
	PaidQRs          int
	PendingQRs       int
	ExpiredQRs       int
	ErrorQRs         int
}

// Report — результат Summarize: детали по каждому QR плюс агрегаты.
type Report struct {
	Date    time.Time
	Details []QRDetail
	Summary Summary
}

// Summarize собирает операционную сводку по всем QR, выписанным в дату.
// Отсутствующая сумма считается нулём. Шлюз без конфигурации — жёсткая
// ошибка: безопасной подмены для аудита не существует.
func (e *Engine) Summarize(date time.Time) (Report, error) {
	started := e.now()

	list, err := e.gateway.ListByDate(date)
	if err != nil {
		e.metrics.RecordReconciliationRun("error", e.now().Sub(started))
		if errors.Is(err, domain.ErrGatewayNotConfigured) {
			return Report{}, err
		}
		return Report{}, fmt.Errorf("list gateway qrs: %w", err)
	}

	report := Report{
		Date:    date,
		Details: make([]QRDetail, 0, len(list)),
	}

	for _, qr := range list {
		label := qr.Status.Label()
		detail := QRDetail{
			QRID:        qr.QRID,
			Currency:    qr.Currency,
			Gloss:       qr.Gloss,
			StatusLabel: label,
			CreatedAt:   qr.CreatedAt,
			ExpiresAt:   qr.ExpiresAt,
			PaidAt:      qr.PaidAt,
			SingleUse:   qr.SingleUse,
		}
		if qr.AmountMinor != nil {
			detail.AmountMinor = *qr.AmountMinor
			report.Summary.TotalAmountMinor += *qr.AmountMinor
		}

		switch qr.Status {
		case domain.GatewayStatusPaid:
			report.Summary.PaidQRs++
		case domain.GatewayStatusPending:
			report.Summary.PendingQRs++
		case domain.GatewayStatusExpired:
			report.Summary.ExpiredQRs++
		default:
			report.Summary.ErrorQRs++
		}

		e.metrics.RecordReconciliationQR(label)
		report.Details = append(report.Details, detail)
	}

	e.metrics.RecordReconciliationRun("ok", e.now().Sub(started))
	e.logger.WithFields(log.Fields{
		"date":      date.Format("2006-01-02"),
		"total_qrs": len(report.Details),
		"paid":      report.Summary.PaidQRs,
	}).Info("reconciliation summary built")

	return report, nil
}

// CheckResult — результат проверки одного QR.
// Либо Status/StatusLabel заполнены, либо Err содержит причину отказа.
type CheckResult struct {
	QRID        string
	Status      domain.GatewayStatus
	StatusLabel string
	Err         string
}

// CheckMany опрашивает статусы QR независимо и конкурентно.
// Отказ по одному id не роняет батч: каждая позиция несёт либо статус,
// либо ошибку, порядок результатов совпадает с порядком входа.
func (e *Engine) CheckMany(qrIDs []string) []CheckResult {
	results := make([]CheckResult, len(qrIDs))
	if len(qrIDs) == 0 {
		return results
	}

	e.metrics.RecordBatchCheckStarted(len(qrIDs))
	defer e.metrics.RecordBatchCheckFinished()

	var wg sync.WaitGroup
	for i, qrID := range qrIDs {
		wg.Add(1)
		go func(idx int, id string) {
			defer wg.Done()
			status, err := e.gateway.PollStatus(id)
			if err != nil {
				results[idx] = CheckResult{QRID: id, Err: err.Error()}
				return
			}
			results[idx] = CheckResult{
				QRID:        id,
				Status:      status,
				StatusLabel: status.Label(),
			}
		}(i, qrID)
	}
	wg.Wait()

	return results
}
