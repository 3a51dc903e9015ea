package reconcile_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
	"github.com/vladislavdragonenkov/qrpay/internal/gateway/bnb"
	"github.com/vladislavdragonenkov/qrpay/internal/service/reconcile"
)

func loggerForTests() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return log.NewEntry(logger)
}

func amount(v int64) *int64 { return &v }

func TestSummarize_CountsAndTotals(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	gateway := &bnb.MockGateway{
		ListResult: []domain.GatewayQR{
			{QRID: "qr-1", AmountMinor: amount(1000), Status: domain.GatewayStatusPending},
			{QRID: "qr-2", AmountMinor: amount(2000), Status: domain.GatewayStatusPaid},
			{QRID: "qr-3", AmountMinor: amount(1500), Status: domain.GatewayStatusPaid},
			{QRID: "qr-4", AmountMinor: amount(500), Status: domain.GatewayStatusExpired},
		},
	}
	engine := reconcile.NewEngine(gateway, nil, loggerForTests())

	report, err := engine.Summarize(date)
	require.NoError(t, err)
	require.Len(t, report.Details, 4)
	require.Equal(t, int64(5000), report.Summary.TotalAmountMinor)
	require.Equal(t, 2, report.Summary.PaidQRs)
	require.Equal(t, 1, report.Summary.PendingQRs)
	require.Equal(t, 1, report.Summary.ExpiredQRs)
	require.Equal(t, 0, report.Summary.ErrorQRs)
}

func TestSummarize_MissingAmountCountsAsZero(t *testing.T) {
	gateway := &bnb.MockGateway{
		ListResult: []domain.GatewayQR{
			{QRID: "qr-1", Status: domain.GatewayStatusPaid},
			{QRID: "qr-2", AmountMinor: amount(700), Status: domain.GatewayStatusError},
		},
	}
	engine := reconcile.NewEngine(gateway, nil, loggerForTests())

	report, err := engine.Summarize(time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(700), report.Summary.TotalAmountMinor)
	require.Equal(t, int64(0), report.Details[0].AmountMinor)
	require.Equal(t, 1, report.Summary.ErrorQRs)
}

func TestSummarize_GatewayNotConfiguredIsHardError(t *testing.T) {
	gateway := &bnb.MockGateway{ListErr: domain.ErrGatewayNotConfigured}
	engine := reconcile.NewEngine(gateway, nil, loggerForTests())

	_, err := engine.Summarize(time.Now())
	require.ErrorIs(t, err, domain.ErrGatewayNotConfigured)
}

func TestSummarize_GatewayUnavailable(t *testing.T) {
	gateway := &bnb.MockGateway{
		ListErr: fmt.Errorf("%w: connection refused", domain.ErrGatewayUnavailable),
	}
	engine := reconcile.NewEngine(gateway, nil, loggerForTests())

	_, err := engine.Summarize(time.Now())
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestCheckMany_PreservesInputOrder(t *testing.T) {
	gateway := &bnb.MockGateway{
		StatusByQR: map[string]domain.GatewayStatus{
			"qr-1": domain.GatewayStatusPaid,
			"qr-2": domain.GatewayStatusPending,
			"qr-3": domain.GatewayStatusExpired,
		},
	}
	engine := reconcile.NewEngine(gateway, nil, loggerForTests())

	results := engine.CheckMany([]string{"qr-3", "qr-1", "qr-2"})
	require.Len(t, results, 3)
	require.Equal(t, "qr-3", results[0].QRID)
	require.Equal(t, "expired", results[0].StatusLabel)
	require.Equal(t, "qr-1", results[1].QRID)
	require.Equal(t, "paid", results[1].StatusLabel)
	require.Equal(t, "qr-2", results[2].QRID)
	require.Equal(t, "pending", results[2].StatusLabel)
}

func TestCheckMany_IsolatesFailures(t *testing.T) {
	gateway := &bnb.MockGateway{
		StatusByQR: map[string]domain.GatewayStatus{
			"qr-ok": domain.GatewayStatusPaid,
		},
		StatusErr: map[string]error{
			"qr-bad": errors.New("gateway timeout"),
		},
	}
	engine := reconcile.NewEngine(gateway, nil, loggerForTests())

	results := engine.CheckMany([]string{"qr-ok", "qr-bad", "qr-ok"})
	require.Len(t, results, 3)
	require.Empty(t, results[0].Err)
	require.Equal(t, "paid", results[0].StatusLabel)
	require.Equal(t, "gateway timeout", results[1].Err)
	require.Empty(t, results[1].StatusLabel)
	require.Empty(t, results[2].Err)
}

func TestCheckMany_EmptyInput(t *testing.T) {
	gateway := &bnb.MockGateway{}
	engine := reconcile.NewEngine(gateway, nil, loggerForTests())

	results := engine.CheckMany(nil)
	require.Empty(t, results)
	require.Zero(t, gateway.ListCalls)
}

func TestCheckMany_LargeBatch(t *testing.T) {
	statuses := make(map[string]domain.GatewayStatus, 50)
	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("qr-%02d", i)
		ids = append(ids, id)
		statuses[id] = domain.GatewayStatusPaid
	}
	gateway := &bnb.MockGateway{StatusByQR: statuses}
	engine := reconcile.NewEngine(gateway, nil, loggerForTests())

	results := engine.CheckMany(ids)
	require.Len(t, results, 50)
	for i, res := range results {
		require.Equal(t, ids[i], res.QRID)
		require.Equal(t, "paid", res.StatusLabel)
	}
}
