package payment

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
	"github.com/vladislavdragonenkov/qrpay/internal/metrics"
)

// DefaultCurrency — валюта по умолчанию для платёжных интентов.
const DefaultCurrency = "BOB"

const defaultQRTTL = 24 * time.Hour

// Однопиксельный PNG как заглушка изображения для mock/fallback-интентов.
const mockQRImageBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

// Topics для Kafka
const TopicPaymentEvents = "shop.payment.events"

// EventPublisher публикует события платёжного контура (best-effort).
type EventPublisher interface {
	PublishEvent(topic, key string, event interface{}) error
}

// Intent — результат попытки выписать QR: либо подтверждённый шлюзом,
// либо локально синтезированный mock/fallback с явной пометкой.
type Intent struct {
	TransactionID string
	QRID          string
	ImageBase64   string
	ExpiresAt     time.Time
	Source        domain.TransactionSource
	Message       string
}

// IsMock сообщает, что интент не подтверждён шлюзом.
func (i Intent) IsMock() bool {
	return i.Source.IsMock()
}

// IntentEvent — событие о выписанном платёжном интенте.
type IntentEvent struct {
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id"`
	OrderID       string    `json:"order_id"`
	AmountMinor   int64     `json:"amount_minor"`
	Currency      string    `json:"currency"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// IntentService оркестрирует выписку QR: шлюз, реестр транзакций, деградация.
type IntentService struct {
	gateway  domain.PaymentGateway
	registry domain.QRTransactionRegistry
	events   EventPublisher
	metrics  *metrics.PaymentMetrics
	logger   *log.Entry
	qrTTL    time.Duration
	now      func() time.Time
}

// NewIntentService конструирует сервис платёжных интентов.
// events и metrics опциональны; qrTTL <= 0 означает сутки.
func NewIntentService(
	gateway domain.PaymentGateway,
	registry domain.QRTransactionRegistry,
	events EventPublisher,
	paymentMetrics *metrics.PaymentMetrics,
	qrTTL time.Duration,
	logger *log.Entry,
) *IntentService {
	if logger == nil {
		logger = log.WithField("component", "payment-intents")
	}
	if qrTTL <= 0 {
		qrTTL = defaultQRTTL
	}
	return &IntentService{
		gateway:  gateway,
		registry: registry,
		events:   events,
		metrics:  paymentMetrics,
		logger:   logger,
		qrTTL:    qrTTL,
		now:      time.Now,
	}
}

// CreateQR выписывает платёжный интент для заказа.
//
// Деградация разрешена только на этом пути: при отсутствии конфигурации шлюза
// или ошибке вызова возвращается локально синтезированный интент с источником
// mock/fallback, чтобы вызывающий отличал неподтверждённые платежи.
// Ошибки валидации (пустой orderID, amount <= 0) не деградируют и не создают
// запись в реестре.
func (s *IntentService) CreateQR(orderID string, amountMinor int64, currency string) (Intent, error) {
	if orderID == "" {
		return Intent{}, domain.ErrOrderIDRequired
	}
	if amountMinor <= 0 {
		return Intent{}, domain.ErrInvalidAmount
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	now := s.now().UTC()
	intent := s.mint(orderID, amountMinor, currency, now)

	tx := domain.QRTransaction{
		TransactionID: intent.TransactionID,
		QRID:          intent.QRID,
		OrderID:       orderID,
		AmountMinor:   amountMinor,
		Currency:      currency,
		CreatedAt:     now,
		ExpiresAt:     intent.ExpiresAt,
	}
	if err := s.registry.Put(tx); err != nil {
		// Реестр — best-effort трекинг in-flight интентов, интент уже выписан.
		s.logger.WithError(err).WithField("transaction_id", tx.TransactionID).
			Warn("failed to register qr transaction")
	}

	s.metrics.RecordQRMinted(string(intent.Source))
	s.publish(tx, intent.Source)
	return intent, nil
}

func (s *IntentService) mint(orderID string, amountMinor int64, currency string, now time.Time) Intent {
	minted, err := s.gateway.MintQR(orderID, amountMinor, currency)
	if err == nil {
		return Intent{
			TransactionID: domain.NewTransactionID(domain.TransactionSourceBNB, minted.QRID, now),
			QRID:          minted.QRID,
			ImageBase64:   minted.ImageBase64,
			ExpiresAt:     minted.ExpiresAt,
			Source:        domain.TransactionSourceBNB,
		}
	}

	if errors.Is(err, domain.ErrGatewayNotConfigured) {
		s.logger.WithField("order_id", orderID).Info("gateway not configured, issuing mock qr")
		return Intent{
			TransactionID: domain.NewTransactionID(domain.TransactionSourceMock, orderID, now),
			ImageBase64:   mockQRImageBase64,
			ExpiresAt:     now.Add(s.qrTTL),
			Source:        domain.TransactionSourceMock,
			Message:       "payment gateway is not configured, issued a mock QR",
		}
	}

	s.logger.WithError(err).WithField("order_id", orderID).Warn("gateway mint failed, issuing fallback qr")
	return Intent{
		TransactionID: domain.NewTransactionID(domain.TransactionSourceFallback, orderID, now),
		ImageBase64:   mockQRImageBase64,
		ExpiresAt:     now.Add(s.qrTTL),
		Source:        domain.TransactionSourceFallback,
		Message:       "payment gateway call failed, issued a fallback QR: " + err.Error(),
	}
}

func (s *IntentService) publish(tx domain.QRTransaction, source domain.TransactionSource) {
	if s.events == nil {
		return
	}
	event := IntentEvent{
		EventType:     "payment.qr_created",
		TransactionID: tx.TransactionID,
		OrderID:       tx.OrderID,
		AmountMinor:   tx.AmountMinor,
		Currency:      tx.Currency,
		Source:        string(source),
		Timestamp:     tx.CreatedAt,
	}
	if err := s.events.PublishEvent(TopicPaymentEvents, tx.OrderID, event); err != nil {
		s.logger.WithError(err).WithField("transaction_id", tx.TransactionID).
			Warn("failed to publish payment event")
	}
}
