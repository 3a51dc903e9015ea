package bnb

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
)

func loggerForTests() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return log.NewEntry(logger)
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		AccountID: "acc-1",
		AuthToken: "token-1",
		Timeout:   time.Second,
		QRTTL:     24 * time.Hour,
	}
}

func TestMintQR_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody mintRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(mintResponse{
			Success:        true,
			QRID:           "qr-42",
			QRImage:        "aW1hZ2U=",
			ExpirationDate: "2024-03-02",
		})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), loggerForTests())

	minted, err := client.MintQR("order-1", 5099, "BOB")
	require.NoError(t, err)
	require.Equal(t, "qr-42", minted.QRID)
	require.Equal(t, "aW1hZ2U=", minted.ImageBase64)
	require.Equal(t, "2024-03-02", minted.ExpiresAt.Format("2006-01-02"))

	require.Equal(t, "/api/v1/main/getQRWithImageAsync", gotPath)
	require.Equal(t, "Bearer token-1", gotAuth)
	require.Equal(t, "acc-1", gotBody.AccountID)
	require.InDelta(t, 50.99, gotBody.Amount, 0.001)
	require.True(t, gotBody.SingleUse)
}

func TestMintQR_InvalidAmountBeforeCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), loggerForTests())

	_, err := client.MintQR("order-1", 0, "BOB")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	require.False(t, called)
}

func TestMintQR_NotConfigured(t *testing.T) {
	client := NewClient(Config{}, loggerForTests())

	_, err := client.MintQR("order-1", 5000, "BOB")
	require.ErrorIs(t, err, domain.ErrGatewayNotConfigured)
}

func TestMintQR_GatewayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(mintResponse{Success: false, Message: "limit reached"})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), loggerForTests())

	_, err := client.MintQR("order-1", 5000, "BOB")
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	require.Contains(t, err.Error(), "limit reached")
}

func TestMintQR_TransportErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), loggerForTests())

	_, err := client.MintQR("order-1", 5000, "BOB")
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestPollStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/main/getQRStatusAsync", r.URL.Path)
		_ = json.NewEncoder(w).Encode(statusResponse{Success: true, StatusID: 2})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), loggerForTests())

	status, err := client.PollStatus("qr-42")
	require.NoError(t, err)
	require.Equal(t, domain.GatewayStatusPaid, status)
}

func TestPollStatus_NotConfigured(t *testing.T) {
	client := NewClient(Config{}, loggerForTests())

	_, err := client.PollStatus("qr-42")
	require.ErrorIs(t, err, domain.ErrGatewayNotConfigured)
}

func TestListByDate(t *testing.T) {
	paidAmount := 120.50
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/main/getQRsByDateAsync", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "2024-01-01", payload["generation_date"])

		_ = json.NewEncoder(w).Encode(listResponse{
			Success: true,
			QRList: []gatewayQR{
				{
					QRID:           "qr-1",
					Amount:         &paidAmount,
					Currency:       "BOB",
					Gloss:          "order order-1",
					StatusID:       2,
					GenerationDate: "2024-01-01",
					ExpirationDate: "2024-01-02",
					PaymentDate:    "2024-01-01",
					SingleUse:      true,
				},
				{
					QRID:           "qr-2",
					StatusID:       1,
					GenerationDate: "2024-01-01",
					ExpirationDate: "2024-01-02",
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), loggerForTests())

	qrs, err := client.ListByDate(time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, qrs, 2)

	require.Equal(t, "qr-1", qrs[0].QRID)
	require.NotNil(t, qrs[0].AmountMinor)
	require.Equal(t, int64(12050), *qrs[0].AmountMinor)
	require.Equal(t, domain.GatewayStatusPaid, qrs[0].Status)
	require.NotNil(t, qrs[0].PaidAt)

	require.Nil(t, qrs[1].AmountMinor)
	require.Equal(t, domain.GatewayStatusPending, qrs[1].Status)
	require.Nil(t, qrs[1].PaidAt)
}

func TestListByDate_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(listResponse{Success: false, Message: "internal"})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), loggerForTests())

	_, err := client.ListByDate(time.Now())
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}
