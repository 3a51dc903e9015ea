package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
)

// qrRegistryInMemory — in-memory реализация QRTransactionRegistry.
// Просроченные записи отфильтровываются на чтении и вычищаются sweeper-воркером.
type qrRegistryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.QRTransaction
	now   func() time.Time
}

// NewQRRegistry возвращает in-memory реестр для локальной разработки и тестов.
func NewQRRegistry() domain.QRTransactionRegistry {
	return &qrRegistryInMemory{
		items: make(map[string]domain.QRTransaction),
		now:   time.Now,
	}
}

// Put сохраняет транзакцию; повторная запись с тем же ID перезаписывает её.
func (r *qrRegistryInMemory) Put(tx domain.QRTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[tx.TransactionID] = tx
	return nil
}

// Get возвращает транзакцию или ErrQRTransactionNotFound.
// Просроченная запись эквивалентна отсутствующей.
func (r *qrRegistryInMemory) Get(transactionID string) (domain.QRTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.items[transactionID]
	if !ok {
		return domain.QRTransaction{}, domain.ErrQRTransactionNotFound
	}
	if !tx.ExpiresAt.IsZero() && !tx.ExpiresAt.After(r.now()) {
		return domain.QRTransaction{}, domain.ErrQRTransactionNotFound
	}
	return tx, nil
}

// Delete удаляет транзакцию; отсутствующая запись не считается ошибкой.
func (r *qrRegistryInMemory) Delete(transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, transactionID)
	return nil
}

// DeleteExpired удаляет записи с ExpiresAt <= before порциями limit.
func (r *qrRegistryInMemory) DeleteExpired(before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := make([]string, 0)
	for id, tx := range r.items {
		if !tx.ExpiresAt.IsZero() && !tx.ExpiresAt.After(before) {
			expired = append(expired, id)
		}
	}
	// Детерминированный порядок удаления упрощает батчевые тесты.
	sort.Strings(expired)

	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	for _, id := range expired {
		delete(r.items, id)
	}

	return len(expired), nil
}

var _ domain.QRTransactionRegistry = (*qrRegistryInMemory)(nil)
