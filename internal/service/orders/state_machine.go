package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
	"github.com/vladislavdragonenkov/qrpay/internal/metrics"
)

const (
	timelineEventOrderCreated        = "OrderCreated"
	timelineEventPaymentStateChanged = "PaymentStateChanged"
	timelineEventDeliveryChanged     = "DeliveryStateChanged"
	timelineEventStatusOverridden    = "StatusOverridden"
)

// EventPublisher публикует события жизненного цикла заказа (best-effort).
type EventPublisher interface {
	PublishEvent(topic, key string, event interface{}) error
}

// StateMachine — авторитетная логика переходов состояния заказа.
// Каждая операция — одно чтение и одна durable-запись в хранилище;
// блокировок в процессе нет, гонки разрешает стор (last-write-wins).
type StateMachine struct {
	repo     domain.OrderRepository
	timeline domain.TimelineRepository
	events   EventPublisher
	metrics  *metrics.PaymentMetrics
	logger   *log.Entry
	now      func() time.Time
}

// NewStateMachine конструирует машину состояний с зависимостями.
// timeline, events и metrics опциональны.
func NewStateMachine(
	repo domain.OrderRepository,
	timeline domain.TimelineRepository,
	events EventPublisher,
	paymentMetrics *metrics.PaymentMetrics,
	logger *log.Entry,
) *StateMachine {
	if logger == nil {
		logger = log.WithField("component", "order-state-machine")
	}
	return &StateMachine{
		repo:     repo,
		timeline: timeline,
		events:   events,
		metrics:  paymentMetrics,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateOrder создаёт заказ в начальном состоянии checkout (pending, не оплачен).
func (s *StateMachine) CreateOrder() (domain.Order, error) {
	now := s.now().UTC()
	order := domain.NewOrder(uuid.NewString(), now)

	if err := s.repo.Create(order); err != nil {
		s.logger.WithError(err).Error("failed to create order")
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.appendTimeline(order.ID, timelineEventOrderCreated, string(order.Status), now)
	s.publish(eventTypeOrderCreated, order)
	return order, nil
}

// GetOrder возвращает заказ и его таймлайн.
func (s *StateMachine) GetOrder(orderID string) (domain.Order, []domain.TimelineEvent, error) {
	if orderID == "" {
		return domain.Order{}, nil, domain.ErrOrderIDRequired
	}

	order, err := s.repo.Get(orderID)
	if err != nil {
		return domain.Order{}, nil, err
	}

	var events []domain.TimelineEvent
	if s.timeline != nil {
		events, err = s.timeline.List(orderID)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to list timeline events")
			events = nil
		}
	}

	return order, events, nil
}

// SetPaymentState применяет событие оплаты к заказу.
func (s *StateMachine) SetPaymentState(orderID string, isPaid bool) (domain.Order, error) {
	return s.transition("update-payment", orderID, timelineEventPaymentStateChanged,
		fmt.Sprintf("is_paid=%t", isPaid), eventTypePaymentUpdated,
		func(order domain.Order, now time.Time) (domain.Order, error) {
			return domain.ApplyPaymentState(order, isPaid, now)
		})
}

// SetDeliveryState применяет событие доставки к заказу.
func (s *StateMachine) SetDeliveryState(orderID string, isDelivered bool) (domain.Order, error) {
	return s.transition("update-delivery", orderID, timelineEventDeliveryChanged,
		fmt.Sprintf("is_delivered=%t", isDelivered), eventTypeDeliveryUpdated,
		func(order domain.Order, now time.Time) (domain.Order, error) {
			return domain.ApplyDeliveryState(order, isDelivered, now)
		})
}

// SetStatus применяет административную смену статуса.
// Авторизация оператора выполняется внешним коллаборатором до вызова.
func (s *StateMachine) SetStatus(orderID string, status domain.OrderStatus) (domain.Order, error) {
	if !domain.IsValidStatus(status) {
		s.recordTransition("update-status", "invalid")
		return domain.Order{}, domain.ErrInvalidStatus
	}
	return s.transition("update-status", orderID, timelineEventStatusOverridden,
		string(status), eventTypeStatusOverridden,
		func(order domain.Order, now time.Time) (domain.Order, error) {
			return domain.ApplyStatusOverride(order, status, now)
		})
}

// transition — общий каркас перехода: загрузка, чистая функция, одна запись,
// таймлайн и событие best-effort.
func (s *StateMachine) transition(
	operation, orderID, timelineType, timelineReason string,
	eventType EventType,
	apply func(domain.Order, time.Time) (domain.Order, error),
) (domain.Order, error) {
	if orderID == "" {
		s.recordTransition(operation, "invalid")
		return domain.Order{}, domain.ErrOrderIDRequired
	}

	order, err := s.repo.Get(orderID)
	if err != nil {
		s.recordTransition(operation, transitionResult(err))
		s.logger.WithError(err).WithFields(log.Fields{
			"operation": operation,
			"order_id":  orderID,
		}).Warn("failed to load order")
		return domain.Order{}, err
	}

	now := s.now().UTC()
	updated, err := apply(order, now)
	if err != nil {
		s.recordTransition(operation, transitionResult(err))
		return domain.Order{}, err
	}

	if err := s.repo.Save(updated); err != nil {
		s.recordTransition(operation, "store_error")
		s.logger.WithError(err).WithFields(log.Fields{
			"operation": operation,
			"order_id":  orderID,
		}).Error("failed to save order")
		return domain.Order{}, fmt.Errorf("save order: %w", err)
	}

	s.recordTransition(operation, "ok")
	s.appendTimeline(updated.ID, timelineType, timelineReason, now)
	s.publish(eventType, updated)
	return updated, nil
}

func (s *StateMachine) recordTransition(operation, result string) {
	s.metrics.RecordTransition(operation, result)
}

func transitionResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return "not_found"
	case domain.IsInvalidTransition(err), errors.Is(err, domain.ErrInvalidStatus):
		return "invalid"
	default:
		return "store_error"
	}
}

func (s *StateMachine) appendTimeline(orderID, eventType, reason string, occurred time.Time) {
	if s.timeline == nil {
		return
	}
	event := domain.TimelineEvent{
		OrderID:  orderID,
		Type:     eventType,
		Reason:   reason,
		Occurred: occurred,
	}
	if err := s.timeline.Append(event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Warn("failed to append timeline event")
	}
}

func (s *StateMachine) publish(eventType EventType, order domain.Order) {
	if s.events == nil {
		return
	}
	event := NewOrderEvent(eventType, order)
	if err := s.events.PublishEvent(TopicOrderEvents, order.ID, event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    string(eventType),
		}).Warn("failed to publish order event")
	}
}
