package memory_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
	"github.com/vladislavdragonenkov/qrpay/internal/storage/memory"
)

func newOrder() domain.Order {
	now := time.Now().UTC()
	return domain.NewOrder("order-1", now)
}

func TestOrderRepository_CreateGet(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder()

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.ID != order.ID {
		t.Fatalf("expected id %s, got %s", order.ID, stored.ID)
	}
	if stored.Status != domain.OrderStatusPending {
		t.Fatalf("expected status pending, got %s", stored.Status)
	}
}

func TestOrderRepository_CreateDuplicate(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder()

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(order); !errors.Is(err, domain.ErrOrderAlreadyExists) {
		t.Fatalf("expected ErrOrderAlreadyExists, got %v", err)
	}
}

func TestOrderRepository_GetNotFound(t *testing.T) {
	repo := memory.NewOrderRepository()

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_SaveLastWriteWins(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder()

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	now := time.Now().UTC()
	order.Status = domain.OrderStatusPaid
	order.IsPaid = true
	order.PaidAt = &now

	if err := repo.Save(order); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != domain.OrderStatusPaid || !stored.IsPaid || stored.PaidAt == nil {
		t.Fatalf("unexpected stored order: %+v", stored)
	}
}

func TestOrderRepository_SaveNotFound(t *testing.T) {
	repo := memory.NewOrderRepository()

	if err := repo.Save(newOrder()); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_GetReturnsCopy(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder()
	paidAt := order.CreatedAt
	order.IsPaid = true
	order.PaidAt = &paidAt

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	// Мутация копии не должна протекать в хранилище.
	*stored.PaidAt = stored.PaidAt.Add(48 * time.Hour)

	fresh, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !fresh.PaidAt.Equal(paidAt) {
		t.Fatalf("stored paid_at mutated: %v", fresh.PaidAt)
	}
}

func TestOrderRepository_ListNewestFirstWithLimit(t *testing.T) {
	repo := memory.NewOrderRepository()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		order := domain.NewOrder(fmt.Sprintf("order-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := repo.Create(order); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	orders, err := repo.List(3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	if orders[0].ID != "order-4" || orders[2].ID != "order-2" {
		t.Fatalf("unexpected order of results: %s, %s, %s", orders[0].ID, orders[1].ID, orders[2].ID)
	}
}
