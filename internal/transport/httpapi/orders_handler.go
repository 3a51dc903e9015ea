package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
	"github.com/vladislavdragonenkov/qrpay/internal/service/orders"
)

// OrdersHandler обслуживает операции над жизненным циклом заказа.
type OrdersHandler struct {
	stateMachine *orders.StateMachine
	logger       *log.Entry
}

// NewOrdersHandler создаёт обработчик операций над заказами.
func NewOrdersHandler(stateMachine *orders.StateMachine, logger *log.Entry) *OrdersHandler {
	if logger == nil {
		logger = log.WithField("component", "http-orders")
	}
	return &OrdersHandler{stateMachine: stateMachine, logger: logger}
}

type orderDTO struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	IsPaid      bool       `json:"isPaid"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	IsDelivered bool       `json:"isDelivered"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toOrderDTO(o domain.Order) orderDTO {
	return orderDTO{
		ID:          o.ID,
		Status:      string(o.Status),
		IsPaid:      o.IsPaid,
		PaidAt:      o.PaidAt,
		IsDelivered: o.IsDelivered,
		DeliveredAt: o.DeliveredAt,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

type timelineEventDTO struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

// CreateOrder создаёт pending-заказ для checkout-контура.
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.stateMachine.CreateOrder()
	if err != nil {
		h.logger.WithError(err).Error("failed to create order")
		writeError(w, statusForError(err), "failed to create order")
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "order created",
		Data:    toOrderDTO(order),
	})
}

// GetOrder возвращает заказ вместе с его timeline.
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	order, timeline, err := h.stateMachine.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.WithError(err).WithField("order_id", orderID).Error("failed to load order")
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}

	events := make([]timelineEventDTO, 0, len(timeline))
	for _, event := range timeline {
		events = append(events, timelineEventDTO{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]interface{}{
			"order":    toOrderDTO(order),
			"timeline": events,
		},
	})
}

type updatePaymentRequest struct {
	OrderID string `json:"orderId"`
	IsPaid  *bool  `json:"isPaid"`
}

// UpdatePayment выставляет признак оплаты заказа.
func (h *OrdersHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}
	if req.IsPaid == nil {
		writeError(w, http.StatusBadRequest, "isPaid is required")
		return
	}

	order, err := h.stateMachine.SetPaymentState(req.OrderID, *req.IsPaid)
	if err != nil {
		h.respondTransitionError(w, "update payment", req.OrderID, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "payment state updated",
		Data:    toOrderDTO(order),
	})
}

type updateDeliveryRequest struct {
	OrderID     string `json:"orderId"`
	IsDelivered *bool  `json:"isDelivered"`
}

// UpdateDelivery выставляет признак доставки заказа.
func (h *OrdersHandler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	var req updateDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}
	if req.IsDelivered == nil {
		writeError(w, http.StatusBadRequest, "isDelivered is required")
		return
	}

	order, err := h.stateMachine.SetDeliveryState(req.OrderID, *req.IsDelivered)
	if err != nil {
		h.respondTransitionError(w, "update delivery", req.OrderID, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "delivery state updated",
		Data:    toOrderDTO(order),
	})
}

type updateStatusRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// UpdateStatus переводит заказ в целевой статус оператором.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.OrderID == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, "orderId and status are required")
		return
	}

	status := domain.OrderStatus(req.Status)
	if !domain.IsValidStatus(status) {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidStatus.Error())
		return
	}

	order, err := h.stateMachine.SetStatus(req.OrderID, status)
	if err != nil {
		h.respondTransitionError(w, "update status", req.OrderID, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    toOrderDTO(order),
	})
}

func (h *OrdersHandler) respondTransitionError(w http.ResponseWriter, operation, orderID string, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("order_id", orderID).Errorf("failed to %s", operation)
		writeError(w, code, "failed to persist order")
		return
	}
	writeError(w, code, err.Error())
}
