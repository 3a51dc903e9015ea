package domain

import "time"

// OrderStatus описывает жизненный цикл заказа витрины.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан на checkout, оплата и доставка ещё не выполнены.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — оплата подтверждена.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusShipped — заказ передан в доставку (подразумевает оплату).
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — терминальный статус успешного заказа.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — боковая ветка, не несёт семантики оплаты/доставки.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValidStatus проверяет, что значение входит в пятизначный enum.
func IsValidStatus(status OrderStatus) bool {
	switch status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order агрегирует три коррелированных поля состояния заказа.
//
// Инварианты:
//   - IsDelivered == true влечёт IsPaid == true;
//   - Status == delivered влечёт IsDelivered и IsPaid;
//   - Status == shipped влечёт IsPaid.
type Order struct {
	ID          string
	Status      OrderStatus
	IsPaid      bool
	PaidAt      *time.Time
	IsDelivered bool
	DeliveredAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет согласованность трёх полей состояния.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if !IsValidStatus(o.Status) {
		errs = append(errs, ErrInvalidStatus)
	}
	if o.IsDelivered && !o.IsPaid {
		errs = append(errs, ErrDeliveredUnpaid)
	}
	if o.Status == OrderStatusDelivered && (!o.IsDelivered || !o.IsPaid) {
		errs = append(errs, ErrStatusDeliveredInconsistent)
	}
	if o.Status == OrderStatusShipped && !o.IsPaid {
		errs = append(errs, ErrStatusShippedUnpaid)
	}

	return errs
}

// ApplyPaymentState вычисляет новое состояние заказа после события оплаты.
// Снять оплату с доставленного заказа нельзя: доставленный заказ всегда
// считается оплаченным.
func ApplyPaymentState(o Order, isPaid bool, now time.Time) (Order, error) {
	if !isPaid && o.IsDelivered {
		return Order{}, ErrUnpayDelivered
	}

	if isPaid {
		o.IsPaid = true
		o.PaidAt = &now
		// Повышаем статус только с pending: shipped/delivered уже «за» оплатой,
		// а cancelled не участвует в порядке исполнения.
		if o.Status == OrderStatusPending {
			o.Status = OrderStatusPaid
		}
	} else {
		o.IsPaid = false
		o.PaidAt = nil
		// Откат статуса только из paid, прочие статусы не трогаем.
		if o.Status == OrderStatusPaid {
			o.Status = OrderStatusPending
		}
	}

	o.UpdatedAt = now
	return o, nil
}

// ApplyDeliveryState вычисляет новое состояние заказа после события доставки.
// Доставка принудительно выставляет оплату; уже существующий PaidAt сохраняется.
func ApplyDeliveryState(o Order, isDelivered bool, now time.Time) (Order, error) {
	if isDelivered {
		o.IsDelivered = true
		o.DeliveredAt = &now
		o.Status = OrderStatusDelivered
		o.IsPaid = true
		if o.PaidAt == nil {
			o.PaidAt = &now
		}
	} else {
		o.IsDelivered = false
		o.DeliveredAt = nil
		if o.Status == OrderStatusDelivered {
			if o.IsPaid {
				o.Status = OrderStatusPaid
			} else {
				o.Status = OrderStatusPending
			}
		}
	}

	o.UpdatedAt = now
	return o, nil
}

// ApplyStatusOverride применяет административную смену статуса и заново
// выводит булевы поля из фиксированной таблицы. Поля не берутся от вызывающего:
// так инварианты остаются истинными независимо от предыдущего состояния.
func ApplyStatusOverride(o Order, status OrderStatus, now time.Time) (Order, error) {
	if !IsValidStatus(status) {
		return Order{}, ErrInvalidStatus
	}

	switch status {
	case OrderStatusPending:
		o.IsPaid = false
		o.PaidAt = nil
		o.IsDelivered = false
		o.DeliveredAt = nil
	case OrderStatusPaid, OrderStatusShipped:
		o.IsPaid = true
		o.PaidAt = &now
	case OrderStatusDelivered:
		o.IsPaid = true
		o.PaidAt = &now
		o.IsDelivered = true
		o.DeliveredAt = &now
	case OrderStatusCancelled:
		// Отмена не претендует на семантику оплаты/доставки: поля не трогаем.
	}

	o.Status = status
	o.UpdatedAt = now
	return o, nil
}

// NewOrder создаёт заказ в начальном состоянии checkout.
func NewOrder(id string, now time.Time) Order {
	return Order{
		ID:        id,
		Status:    OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
