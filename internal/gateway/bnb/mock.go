package bnb

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов.
// Потокобезопасна: CheckMany опрашивает статусы конкурентно.
type MockGateway struct {
	mu sync.Mutex

	MintResult domain.MintedQR
	MintErr    error

	StatusByQR map[string]domain.GatewayStatus
	StatusErr  map[string]error

	ListResult []domain.GatewayQR
	ListErr    error

	MintCalls []string
	PollCalls []string
	ListCalls int
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		MintResult: domain.MintedQR{
			QRID:        "qr-test",
			ImageBase64: "aW1hZ2U=",
			ExpiresAt:   time.Now().UTC().Add(24 * time.Hour),
		},
		StatusByQR: make(map[string]domain.GatewayStatus),
		StatusErr:  make(map[string]error),
	}
}

// MintQR возвращает заранее настроенный результат и считает вызовы.
func (m *MockGateway) MintQR(orderID string, amountMinor int64, currency string) (domain.MintedQR, error) {
	if amountMinor <= 0 {
		return domain.MintedQR{}, domain.ErrInvalidAmount
	}
	m.mu.Lock()
	m.MintCalls = append(m.MintCalls, orderID)
	m.mu.Unlock()
	return m.MintResult, m.MintErr
}

// PollStatus возвращает настроенный статус или ошибку по конкретному QR.
func (m *MockGateway) PollStatus(qrID string) (domain.GatewayStatus, error) {
	m.mu.Lock()
	m.PollCalls = append(m.PollCalls, qrID)
	m.mu.Unlock()
	if err, ok := m.StatusErr[qrID]; ok {
		return 0, err
	}
	if status, ok := m.StatusByQR[qrID]; ok {
		return status, nil
	}
	return domain.GatewayStatusPending, nil
}

// ListByDate возвращает настроенный список и считает вызовы.
func (m *MockGateway) ListByDate(_ time.Time) ([]domain.GatewayQR, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()
	return m.ListResult, m.ListErr
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
