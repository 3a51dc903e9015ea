package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
)

const (
	keyPrefix = "qrpay:tx:"
	opTimeout = 3 * time.Second
)

// qrRegistryRedis — Redis-реализация QRTransactionRegistry.
// Срок жизни записи обеспечивается нативным TTL ключа, равным сроку действия QR.
type qrRegistryRedis struct {
	client *redis.Client
	now    func() time.Time
}

// NewQRRegistry создаёт Redis-реестр поверх готового клиента.
func NewQRRegistry(client *redis.Client) domain.QRTransactionRegistry {
	return &qrRegistryRedis{client: client, now: time.Now}
}

// Open подключается к Redis и проверяет доступность.
func Open(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// Put сохраняет транзакцию с TTL до истечения срока действия QR.
func (r *qrRegistryRedis) Put(tx domain.QRTransaction) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal qr transaction: %w", err)
	}

	ttl := time.Duration(0)
	if !tx.ExpiresAt.IsZero() {
		ttl = tx.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			// Запись уже просрочена, хранить её нет смысла.
			return nil
		}
	}

	if err := r.client.Set(ctx, keyPrefix+tx.TransactionID, data, ttl).Err(); err != nil {
		return fmt.Errorf("set qr transaction: %w", err)
	}
	return nil
}

// Get возвращает транзакцию или ErrQRTransactionNotFound.
func (r *qrRegistryRedis) Get(transactionID string) (domain.QRTransaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, keyPrefix+transactionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.QRTransaction{}, domain.ErrQRTransactionNotFound
		}
		return domain.QRTransaction{}, fmt.Errorf("get qr transaction: %w", err)
	}

	var tx domain.QRTransaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return domain.QRTransaction{}, fmt.Errorf("unmarshal qr transaction: %w", err)
	}
	return tx, nil
}

// Delete удаляет транзакцию; отсутствующий ключ не считается ошибкой.
func (r *qrRegistryRedis) Delete(transactionID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, keyPrefix+transactionID).Err(); err != nil {
		return fmt.Errorf("delete qr transaction: %w", err)
	}
	return nil
}

// DeleteExpired — no-op: просроченные ключи вычищает сам Redis по TTL.
func (r *qrRegistryRedis) DeleteExpired(_ time.Time, _ int) (int, error) {
	return 0, nil
}

var _ domain.QRTransactionRegistry = (*qrRegistryRedis)(nil)
