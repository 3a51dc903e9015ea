package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists — запись с таким ID уже существует.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrOrderIDRequired — отсутствует идентификатор заказа.
	ErrOrderIDRequired = errors.New("order_id is required")
	// ErrInvalidStatus — статус вне пятизначного enum.
	ErrInvalidStatus = errors.New("status must be one of pending, paid, shipped, delivered, cancelled")
	// ErrUnpayDelivered — попытка снять оплату с доставленного заказа.
	ErrUnpayDelivered = errors.New("cannot mark a delivered order as unpaid")
	// ErrDeliveredUnpaid — нарушение инварианта «доставленный заказ оплачен».
	ErrDeliveredUnpaid = errors.New("delivered order must be paid")
	// ErrStatusDeliveredInconsistent — статус delivered без выставленных булевых полей.
	ErrStatusDeliveredInconsistent = errors.New("status delivered requires is_delivered and is_paid")
	// ErrStatusShippedUnpaid — статус shipped без подтверждённой оплаты.
	ErrStatusShippedUnpaid = errors.New("status shipped requires is_paid")
	// ErrInvalidAmount — сумма платёжного интента должна быть положительной.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrGatewayNotConfigured — конфигурация платёжного шлюза отсутствует.
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
	// ErrGatewayUnavailable — шлюз недоступен или вернул ошибку.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrQRTransactionNotFound — транзакция не найдена в реестре.
	ErrQRTransactionNotFound = errors.New("qr transaction not found")
	// ErrTransactionIDMalformed — идентификатор транзакции не разбирается.
	ErrTransactionIDMalformed = errors.New("transaction id is malformed")
)

// IsInvalidTransition проверяет, что ошибка означает нарушение инвариантов перехода.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrUnpayDelivered)
}
