package domain

import "time"

// PaymentGateway описывает взаимодействие с внешним QR-шлюзом.
type PaymentGateway interface {
	// MintQR просит шлюз выписать QR на сумму заказа.
	// Возвращает ErrInvalidAmount до обращения к шлюзу, ErrGatewayNotConfigured
	// при отсутствии конфигурации и ErrGatewayUnavailable при ошибке вызова.
	MintQR(orderID string, amountMinor int64, currency string) (MintedQR, error)
	// PollStatus запрашивает статус конкретного QR.
	PollStatus(qrID string) (GatewayStatus, error)
	// ListByDate возвращает все QR шлюза, выписанные в указанную календарную дату.
	ListByDate(date time.Time) ([]GatewayQR, error)
}

// QRTransactionRegistry хранит связь локального идентификатора транзакции
// с выписанным платёжным интентом. Записи живут до истечения TTL.
type QRTransactionRegistry interface {
	Put(tx QRTransaction) error
	// Get возвращает транзакцию или ErrQRTransactionNotFound.
	Get(transactionID string) (QRTransaction, error)
	Delete(transactionID string) error
	// DeleteExpired удаляет записи с ExpiresAt <= before, не более limit за вызов.
	DeleteExpired(before time.Time, limit int) (int, error)
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}
