package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TransactionSource помечает происхождение платёжного интента.
type TransactionSource string

const (
	// TransactionSourceBNB — QR выписан реальным шлюзом BNB.
	TransactionSourceBNB TransactionSource = "bnb"
	// TransactionSourceMock — шлюз не сконфигурирован, интент синтезирован локально.
	TransactionSourceMock TransactionSource = "mock"
	// TransactionSourceFallback — вызов шлюза упал, интент синтезирован как деградация.
	TransactionSourceFallback TransactionSource = "fallback"
)

// IsMock сообщает, что интент не подтверждён шлюзом.
func (s TransactionSource) IsMock() bool {
	return s == TransactionSourceMock || s == TransactionSourceFallback
}

// NewTransactionID собирает человекочитаемый идентификатор транзакции:
// <source>_<ref>_<unix>. Ref — это QR id шлюза либо order id для mock/fallback,
// метка времени гарантирует уникальность без центрального счётчика.
func NewTransactionID(source TransactionSource, ref string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%d", source, ref, ts.Unix())
}

// TransactionID — разобранные составляющие идентификатора транзакции.
type TransactionID struct {
	Source    TransactionSource
	Ref       string
	CreatedAt time.Time
}

// ParseTransactionID декодирует идентификатор обратно в источник, ссылку и время.
// Ref может содержать подчёркивания, поэтому отрезаем префикс и суффикс.
func ParseTransactionID(id string) (TransactionID, error) {
	head, rest, ok := strings.Cut(id, "_")
	if !ok {
		return TransactionID{}, ErrTransactionIDMalformed
	}

	source := TransactionSource(head)
	switch source {
	case TransactionSourceBNB, TransactionSourceMock, TransactionSourceFallback:
	default:
		return TransactionID{}, ErrTransactionIDMalformed
	}

	cut := strings.LastIndex(rest, "_")
	if cut <= 0 || cut == len(rest)-1 {
		return TransactionID{}, ErrTransactionIDMalformed
	}

	epoch, err := strconv.ParseInt(rest[cut+1:], 10, 64)
	if err != nil {
		return TransactionID{}, ErrTransactionIDMalformed
	}

	return TransactionID{
		Source:    source,
		Ref:       rest[:cut],
		CreatedAt: time.Unix(epoch, 0).UTC(),
	}, nil
}

// QRTransaction — локальная запись о выписанном платёжном интенте.
// Слабая ссылка на заказ: реестр не владеет записью заказа.
type QRTransaction struct {
	TransactionID string
	QRID          string
	OrderID       string
	AmountMinor   int64
	Currency      string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// GatewayStatus — четырёхзначный словарь статусов шлюза.
// Не путать с OrderStatus: это состояние QR на стороне шлюза.
type GatewayStatus int

const (
	// GatewayStatusPending — QR выписан, но не использован.
	GatewayStatusPending GatewayStatus = 1
	// GatewayStatusPaid — QR использован, платёж проведён.
	GatewayStatusPaid GatewayStatus = 2
	// GatewayStatusExpired — срок действия QR истёк.
	GatewayStatusExpired GatewayStatus = 3
	// GatewayStatusError — шлюз сообщил об ошибке по этому QR.
	GatewayStatusError GatewayStatus = 4
)

// Label переводит код шлюза в доменную метку сводки.
func (s GatewayStatus) Label() string {
	switch s {
	case GatewayStatusPending:
		return "pending"
	case GatewayStatusPaid:
		return "paid"
	case GatewayStatusExpired:
		return "expired"
	default:
		return "errored"
	}
}

// GatewayQR — запись о QR на стороне шлюза (выдача ListByDate).
type GatewayQR struct {
	QRID        string
	AmountMinor *int64 // Шлюз может не вернуть сумму; отсутствие считается нулём.
	Currency    string
	Gloss       string
	Status      GatewayStatus
	CreatedAt   time.Time
	ExpiresAt   time.Time
	PaidAt      *time.Time
	SingleUse   bool
}

// MintedQR — результат успешной выписки QR у шлюза.
type MintedQR struct {
	QRID        string
	ImageBase64 string
	ExpiresAt   time.Time
}
