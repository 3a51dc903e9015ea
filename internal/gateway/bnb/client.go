package bnb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	defaultQRTTL   = 24 * time.Hour

	dateLayout = "2006-01-02"
)

// Config описывает подключение к QR-шлюзу BNB.
type Config struct {
	BaseURL   string
	AccountID string
	AuthToken string
	Timeout   time.Duration
	// QRTTL — срок действия выписываемого QR; совпадает с TTL записи в реестре.
	QRTTL time.Duration
}

// Configured сообщает, достаточно ли конфигурации для обращения к шлюзу.
func (c Config) Configured() bool {
	return c.BaseURL != "" && c.AccountID != "" && c.AuthToken != ""
}

// Client — HTTP-адаптер QR-шлюза BNB.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *log.Entry
}

// NewClient создаёт адаптер шлюза. Конфигурация может быть пустой:
// тогда все вызовы возвращают ErrGatewayNotConfigured, а вызывающий
// деградирует до mock-интента.
func NewClient(cfg Config, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.WithField("component", "bnb-gateway")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.QRTTL <= 0 {
		cfg.QRTTL = defaultQRTTL
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type mintRequest struct {
	AccountID      string  `json:"account_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Gloss          string  `json:"gloss"`
	SingleUse      bool    `json:"single_use"`
	ExpirationDate string  `json:"expiration_date"`
}

type mintResponse struct {
	Success        bool   `json:"success"`
	QRID           string `json:"qr_id"`
	QRImage        string `json:"qr_image"`
	ExpirationDate string `json:"expiration_date"`
	Message        string `json:"message"`
}

// MintQR просит шлюз выписать QR на сумму заказа.
func (c *Client) MintQR(orderID string, amountMinor int64, currency string) (domain.MintedQR, error) {
	if amountMinor <= 0 {
		return domain.MintedQR{}, domain.ErrInvalidAmount
	}
	if !c.cfg.Configured() {
		return domain.MintedQR{}, domain.ErrGatewayNotConfigured
	}

	expiresAt := time.Now().UTC().Add(c.cfg.QRTTL)
	payload := mintRequest{
		AccountID: c.cfg.AccountID,
		// Шлюз принимает сумму в основных единицах с двумя знаками.
		Amount:         float64(amountMinor) / 100,
		Currency:       currency,
		Gloss:          fmt.Sprintf("order %s", orderID),
		SingleUse:      true,
		ExpirationDate: expiresAt.Format(dateLayout),
	}

	var resp mintResponse
	if err := c.post("/api/v1/main/getQRWithImageAsync", payload, &resp); err != nil {
		return domain.MintedQR{}, err
	}
	if !resp.Success || resp.QRID == "" {
		c.logger.WithFields(log.Fields{
			"order_id": orderID,
			"message":  resp.Message,
		}).Warn("gateway rejected qr mint")
		return domain.MintedQR{}, fmt.Errorf("%w: %s", domain.ErrGatewayUnavailable, resp.Message)
	}

	minted := domain.MintedQR{
		QRID:        resp.QRID,
		ImageBase64: resp.QRImage,
		ExpiresAt:   expiresAt,
	}
	if parsed, err := time.Parse(dateLayout, resp.ExpirationDate); err == nil {
		minted.ExpiresAt = parsed
	}
	return minted, nil
}

type statusResponse struct {
	Success  bool   `json:"success"`
	StatusID int    `json:"status_id"`
	Message  string `json:"message"`
}

// PollStatus запрашивает статус конкретного QR у шлюза.
func (c *Client) PollStatus(qrID string) (domain.GatewayStatus, error) {
	if !c.cfg.Configured() {
		return 0, domain.ErrGatewayNotConfigured
	}

	var resp statusResponse
	if err := c.post("/api/v1/main/getQRStatusAsync", map[string]string{"qr_id": qrID}, &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, fmt.Errorf("%w: %s", domain.ErrGatewayUnavailable, resp.Message)
	}

	return domain.GatewayStatus(resp.StatusID), nil
}

type listResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	QRList  []gatewayQR `json:"qr_list"`
}

type gatewayQR struct {
	QRID           string   `json:"qr_id"`
	Amount         *float64 `json:"amount"`
	Currency       string   `json:"currency"`
	Gloss          string   `json:"gloss"`
	StatusID       int      `json:"status_id"`
	GenerationDate string   `json:"generation_date"`
	ExpirationDate string   `json:"expiration_date"`
	PaymentDate    string   `json:"payment_date"`
	SingleUse      bool     `json:"single_use"`
}

// ListByDate возвращает все QR шлюза, выписанные в указанную календарную дату.
func (c *Client) ListByDate(date time.Time) ([]domain.GatewayQR, error) {
	if !c.cfg.Configured() {
		return nil, domain.ErrGatewayNotConfigured
	}

	payload := map[string]string{"generation_date": date.Format(dateLayout)}
	var resp listResponse
	if err := c.post("/api/v1/main/getQRsByDateAsync", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", domain.ErrGatewayUnavailable, resp.Message)
	}

	result := make([]domain.GatewayQR, 0, len(resp.QRList))
	for _, item := range resp.QRList {
		qr := domain.GatewayQR{
			QRID:      item.QRID,
			Currency:  item.Currency,
			Gloss:     item.Gloss,
			Status:    domain.GatewayStatus(item.StatusID),
			SingleUse: item.SingleUse,
		}
		if item.Amount != nil {
			minor := int64(*item.Amount*100 + 0.5)
			qr.AmountMinor = &minor
		}
		if ts, err := time.Parse(dateLayout, item.GenerationDate); err == nil {
			qr.CreatedAt = ts
		}
		if ts, err := time.Parse(dateLayout, item.ExpirationDate); err == nil {
			qr.ExpiresAt = ts
		}
		if item.PaymentDate != "" {
			if ts, err := time.Parse(dateLayout, item.PaymentDate); err == nil {
				qr.PaidAt = &ts
			}
		}
		result = append(result, qr)
	}

	return result, nil
}

// post выполняет JSON-вызов шлюза и декодирует ответ.
// Любая транспортная ошибка заворачивается в ErrGatewayUnavailable.
func (c *Client) post(path string, payload any, out any) error {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: gateway returned %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrGatewayUnavailable, err)
	}

	return nil
}

var _ domain.PaymentGateway = (*Client)(nil)
