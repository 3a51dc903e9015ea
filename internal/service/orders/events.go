package orders

import (
	"time"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
)

// EventType определяет тип события жизненного цикла заказа.
type EventType string

const (
	eventTypeOrderCreated     EventType = "order.created"
	eventTypePaymentUpdated   EventType = "order.payment_updated"
	eventTypeDeliveryUpdated  EventType = "order.delivery_updated"
	eventTypeStatusOverridden EventType = "order.status_overridden"
)

// Topics для Kafka
const (
	TopicOrderEvents = "shop.order.events"
)

// OrderEvent представляет событие заказа для внешних потребителей.
type OrderEvent struct {
	EventType   EventType  `json:"event_type"`
	OrderID     string     `json:"order_id"`
	Status      string     `json:"status"`
	IsPaid      bool       `json:"is_paid"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	IsDelivered bool       `json:"is_delivered"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// NewOrderEvent создаёт событие из текущего состояния заказа.
func NewOrderEvent(eventType EventType, order domain.Order) *OrderEvent {
	return &OrderEvent{
		EventType:   eventType,
		OrderID:     order.ID,
		Status:      string(order.Status),
		IsPaid:      order.IsPaid,
		PaidAt:      order.PaidAt,
		IsDelivered: order.IsDelivered,
		DeliveredAt: order.DeliveredAt,
		Timestamp:   order.UpdatedAt,
	}
}
