package memory_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
	"github.com/vladislavdragonenkov/qrpay/internal/storage/memory"
)

func newTransaction(id string, expiresAt time.Time) domain.QRTransaction {
	return domain.QRTransaction{
		TransactionID: id,
		QRID:          "qr-1",
		OrderID:       "order-1",
		AmountMinor:   5000,
		Currency:      "BOB",
		CreatedAt:     time.Now().UTC(),
		ExpiresAt:     expiresAt,
	}
}

func TestQRRegistry_PutGet(t *testing.T) {
	registry := memory.NewQRRegistry()
	tx := newTransaction("bnb_qr-1_1700000000", time.Now().Add(time.Hour))

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
}

func TestQRRegistry_GetNotFound(t *testing.T) {
	registry := memory.NewQRRegistry()

	if _, err := registry.Get("missing"); !errors.Is(err, domain.ErrQRTransactionNotFound) {
		t.Fatalf("expected ErrQRTransactionNotFound, got %v", err)
	}
}

func TestQRRegistry_ExpiredEntryBehavesAsMissing(t *testing.T) {
	registry := memory.NewQRRegistry()
	tx := newTransaction("bnb_qr-1_1700000000", time.Now().Add(-time.Minute))

	if err := registry.Put(tx); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if _, err := registry.Get(tx.TransactionID); !errors.Is(err, domain.ErrQRTransactionNotFound) {
		t.Fatalf("expected expired entry to be missing, got %v", err)
	}
}

func TestQRRegistry_Delete(t *testing.T) {
	registry := memory.NewQRRegistry()
	tx := newTransaction("bnb_qr-1_1700000000", time.Now().Add(time.Hour))

	if err := registry.Put(tx); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := registry.Delete(tx.TransactionID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := registry.Get(tx.TransactionID); !errors.Is(err, domain.ErrQRTransactionNotFound) {
		t.Fatalf("expected ErrQRTransactionNotFound after delete, got %v", err)
	}

	// Повторное удаление не считается ошибкой.
	if err := registry.Delete(tx.TransactionID); err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
}

func TestQRRegistry_DeleteExpiredBatches(t *testing.T) {
	registry := memory.NewQRRegistry()
	expired := time.Now().Add(-time.Hour)
	alive := time.Now().Add(time.Hour)

	for i := 0; i < 5; i++ {
		tx := newTransaction(fmt.Sprintf("mock_order-%d_1700000000", i), expired)
		if err := registry.Put(tx); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}
	keep := newTransaction("bnb_qr-keep_1700000000", alive)
	if err := registry.Put(keep); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	deleted, err := registry.DeleteExpired(time.Now(), 2)
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	deleted, err = registry.DeleteExpired(time.Now(), 0)
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}

	if _, err := registry.Get(keep.TransactionID); err != nil {
		t.Fatalf("live entry must survive sweep: %v", err)
	}
}
