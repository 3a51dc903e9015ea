package redis

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
)

// Тесты требуют живой Redis; без него пакет пропускается,
// как и интеграционные тесты postgres.
func testClient(t *testing.T) *qrRegistryRedis {
	t.Helper()

	addr := strings.TrimSpace(os.Getenv("QRPAY_REDIS_TEST_ADDR"))
	if addr == "" {
		addr = "localhost:6379"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := Open(ctx, addr)
	if err != nil {
		t.Skipf("redis is not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &qrRegistryRedis{client: client, now: time.Now}
}

func testTransaction(id string, ttl time.Duration) domain.QRTransaction {
	now := time.Now().UTC()
	return domain.QRTransaction{
		TransactionID: id,
		QRID:          "qr-1",
		OrderID:       "order-1",
		AmountMinor:   5000,
		Currency:      "BOB",
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
}

func TestQRRegistry_PutGetDelete(t *testing.T) {
	registry := testClient(t)
	tx := testTransaction("bnb_test-put_1700000000", time.Minute)
	t.Cleanup(func() { _ = registry.Delete(tx.TransactionID) })

	if err := registry.Put(tx); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	stored, err := registry.Get(tx.TransactionID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.OrderID != tx.OrderID || stored.AmountMinor != tx.AmountMinor {
		t.Fatalf("unexpected stored transaction: %+v", stored)
	}

	if err := registry.Delete(tx.TransactionID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := registry.Get(tx.TransactionID); !errors.Is(err, domain.ErrQRTransactionNotFound) {
		t.Fatalf("expected ErrQRTransactionNotFound, got %v", err)
	}
}

func TestQRRegistry_ExpiredEntryNotStored(t *testing.T) {
	registry := testClient(t)
	tx := testTransaction("bnb_test-expired_1700000000", -time.Minute)

	if err := registry.Put(tx); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if _, err := registry.Get(tx.TransactionID); !errors.Is(err, domain.ErrQRTransactionNotFound) {
		t.Fatalf("expected expired entry to be missing, got %v", err)
	}
}

func TestQRRegistry_GetMissing(t *testing.T) {
	registry := testClient(t)

	if _, err := registry.Get("bnb_test-missing_1700000000"); !errors.Is(err, domain.ErrQRTransactionNotFound) {
		t.Fatalf("expected ErrQRTransactionNotFound, got %v", err)
	}
}

func TestQRRegistry_DeleteExpiredIsNoop(t *testing.T) {
	registry := testClient(t)

	deleted, err := registry.DeleteExpired(time.Now(), 100)
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected noop, got %d", deleted)
	}
}
