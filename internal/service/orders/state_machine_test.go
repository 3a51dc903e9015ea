package orders_test

import (
	"errors"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
	"github.com/vladislavdragonenkov/qrpay/internal/service/orders"
	"github.com/vladislavdragonenkov/qrpay/internal/storage/memory"
)

func loggerForTests() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return log.NewEntry(logger)
}

type stubPublisher struct {
	mu     sync.Mutex
	topics []string
	keys   []string
	err    error
}

func (p *stubPublisher) PublishEvent(topic, key string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	return p.err
}

func (p *stubPublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

type failingOrderRepo struct {
	domain.OrderRepository
	saveErr error
}

func (r *failingOrderRepo) Save(order domain.Order) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.OrderRepository.Save(order)
}

func newStateMachine(t *testing.T) (*orders.StateMachine, domain.OrderRepository, *stubPublisher) {
	t.Helper()

	repo := memory.NewOrderRepository()
	timeline := memory.NewTimelineRepository()
	publisher := &stubPublisher{}
	sm := orders.NewStateMachine(repo, timeline, publisher, nil, loggerForTests())
	return sm, repo, publisher
}

func TestCreateOrder(t *testing.T) {
	sm, repo, publisher := newStateMachine(t)

	order, err := sm.CreateOrder()
	require.NoError(t, err)
	require.NotEmpty(t, order.ID)
	require.Equal(t, domain.OrderStatusPending, order.Status)
	require.False(t, order.IsPaid)
	require.False(t, order.IsDelivered)

	stored, err := repo.Get(order.ID)
	require.NoError(t, err)
	require.Equal(t, order.ID, stored.ID)
	require.Equal(t, 1, publisher.published())
}

func TestGetOrder_WithTimeline(t *testing.T) {
	sm, _, _ := newStateMachine(t)

	created, err := sm.CreateOrder()
	require.NoError(t, err)

	_, err = sm.SetPaymentState(created.ID, true)
	require.NoError(t, err)

	order, timeline, err := sm.GetOrder(created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPaid, order.Status)
	require.Len(t, timeline, 2)
	require.Equal(t, "OrderCreated", timeline[0].Type)
	require.Equal(t, "PaymentStateChanged", timeline[1].Type)
}

func TestGetOrder_NotFound(t *testing.T) {
	sm, _, _ := newStateMachine(t)

	_, _, err := sm.GetOrder("missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestSetPaymentState_Pay(t *testing.T) {
	sm, _, publisher := newStateMachine(t)

	created, err := sm.CreateOrder()
	require.NoError(t, err)

	updated, err := sm.SetPaymentState(created.ID, true)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPaid, updated.Status)
	require.True(t, updated.IsPaid)
	require.NotNil(t, updated.PaidAt)
	require.Equal(t, 2, publisher.published())
}

func TestSetPaymentState_UnpayDeliveredLeavesRecordUnchanged(t *testing.T) {
	sm, repo, _ := newStateMachine(t)

	created, err := sm.CreateOrder()
	require.NoError(t, err)
	delivered, err := sm.SetDeliveryState(created.ID, true)
	require.NoError(t, err)

	_, err = sm.SetPaymentState(created.ID, false)
	require.ErrorIs(t, err, domain.ErrUnpayDelivered)

	stored, err := repo.Get(created.ID)
	require.NoError(t, err)
	require.Equal(t, delivered.Status, stored.Status)
	require.True(t, stored.IsPaid)
	require.True(t, stored.IsDelivered)
	require.Equal(t, delivered.UpdatedAt, stored.UpdatedAt)
}

func TestSetPaymentState_MissingOrderID(t *testing.T) {
	sm, _, _ := newStateMachine(t)

	_, err := sm.SetPaymentState("", true)
	require.ErrorIs(t, err, domain.ErrOrderIDRequired)
}

func TestSetDeliveryState_ForcesPayment(t *testing.T) {
	sm, _, _ := newStateMachine(t)

	created, err := sm.CreateOrder()
	require.NoError(t, err)

	updated, err := sm.SetDeliveryState(created.ID, true)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusDelivered, updated.Status)
	require.True(t, updated.IsPaid)
	require.True(t, updated.IsDelivered)
	require.NotNil(t, updated.PaidAt)
	require.NotNil(t, updated.DeliveredAt)
}

func TestSetDeliveryState_PreservesPaidAt(t *testing.T) {
	sm, _, _ := newStateMachine(t)

	created, err := sm.CreateOrder()
	require.NoError(t, err)

	paid, err := sm.SetPaymentState(created.ID, true)
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)

	delivered, err := sm.SetDeliveryState(created.ID, true)
	require.NoError(t, err)
	require.NotNil(t, delivered.PaidAt)
	require.True(t, delivered.PaidAt.Equal(*paid.PaidAt))
}

func TestSetStatus_InvalidStatus(t *testing.T) {
	sm, _, _ := newStateMachine(t)

	_, err := sm.SetStatus("order-1", "archived")
	require.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestSetStatus_Override(t *testing.T) {
	sm, _, _ := newStateMachine(t)

	created, err := sm.CreateOrder()
	require.NoError(t, err)

	updated, err := sm.SetStatus(created.ID, domain.OrderStatusShipped)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusShipped, updated.Status)
	require.True(t, updated.IsPaid)
	require.Empty(t, updated.ValidateInvariants())
}

func TestTransition_StoreFailure(t *testing.T) {
	repo := &failingOrderRepo{
		OrderRepository: memory.NewOrderRepository(),
	}
	sm := orders.NewStateMachine(repo, nil, nil, nil, loggerForTests())

	created, err := sm.CreateOrder()
	require.NoError(t, err)

	repo.saveErr = errors.New("disk full")
	_, err = sm.SetPaymentState(created.ID, true)
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestTransition_PublishFailureDoesNotFailOperation(t *testing.T) {
	repo := memory.NewOrderRepository()
	publisher := &stubPublisher{err: errors.New("kafka down")}
	sm := orders.NewStateMachine(repo, nil, publisher, nil, loggerForTests())

	created, err := sm.CreateOrder()
	require.NoError(t, err)

	updated, err := sm.SetPaymentState(created.ID, true)
	require.NoError(t, err)
	require.True(t, updated.IsPaid)
}
