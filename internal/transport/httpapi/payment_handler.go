package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
	"github.com/vladislavdragonenkov/qrpay/internal/service/payment"
	"github.com/vladislavdragonenkov/qrpay/internal/service/reconcile"
)

const reconciliationDateLayout = "2006-01-02"

// PaymentHandler обслуживает выписку QR и реконсиляцию.
type PaymentHandler struct {
	intents *payment.IntentService
	engine  *reconcile.Engine
	logger  *log.Entry
	now     func() time.Time
}

// NewPaymentHandler создаёт обработчик платёжного контура.
func NewPaymentHandler(intents *payment.IntentService, engine *reconcile.Engine, logger *log.Entry) *PaymentHandler {
	if logger == nil {
		logger = log.WithField("component", "http-payment")
	}
	return &PaymentHandler{intents: intents, engine: engine, logger: logger, now: time.Now}
}

type createQRRequest struct {
	OrderID  string   `json:"orderId"`
	Amount   *float64 `json:"amount"`
	Currency string   `json:"currency"`
}

type createQRResponse struct {
	TransactionID string     `json:"transactionId"`
	QRImageURL    string     `json:"qrImageUrl"`
	QRID          string     `json:"qrId,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	IsMock        bool       `json:"isMock"`
	Message       string     `json:"message,omitempty"`
}

// CreateQR выписывает платёжный QR. Деградация шлюза не превращается в
// ошибку клиента: fallback-интент отдаётся с кодом 200 и isMock=true.
func (h *PaymentHandler) CreateQR(w http.ResponseWriter, r *http.Request) {
	var req createQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}
	if req.Amount == nil || *req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidAmount.Error())
		return
	}
	amountMinor := int64(math.Round(*req.Amount * 100))

	intent, err := h.intents.CreateQR(req.OrderID, amountMinor, req.Currency)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	resp := createQRResponse{
		TransactionID: intent.TransactionID,
		QRImageURL:    "data:image/png;base64," + intent.ImageBase64,
		QRID:          intent.QRID,
		IsMock:        intent.IsMock(),
		Message:       intent.Message,
	}
	if !intent.ExpiresAt.IsZero() {
		expiresAt := intent.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}

	writeJSON(w, http.StatusOK, resp)
}

type qrDetailDTO struct {
	QRID        string     `json:"qrId"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
	Gloss       string     `json:"gloss,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	SingleUse   bool       `json:"singleUse"`
}

type reconciliationResponse struct {
	Date      string        `json:"date"`
	TotalQRs  int           `json:"totalQRs"`
	QRDetails []qrDetailDTO `json:"qrDetails"`
	Summary   summaryDTO    `json:"summary"`
}

type summaryDTO struct {
	TotalAmount int64 `json:"totalAmount"`
	PaidQRs     int   `json:"paidQRs"`
	PendingQRs  int   `json:"pendingQRs"`
	ExpiredQRs  int   `json:"expiredQRs"`
	ErrorQRs    int   `json:"errorQRs"`
}

// Reconciliation отдаёт сводку по QR за календарную дату (по умолчанию — сегодня).
func (h *PaymentHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	date := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(reconciliationDateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
			return
		}
		date = parsed
	}

	report, err := h.engine.Summarize(date)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrGatewayNotConfigured):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrGatewayUnavailable):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			h.logger.WithError(err).Error("reconciliation summary failed")
			writeError(w, http.StatusInternalServerError, "reconciliation failed")
		}
		return
	}

	details := make([]qrDetailDTO, 0, len(report.Details))
	for _, d := range report.Details {
		details = append(details, qrDetailDTO{
			QRID:      d.QRID,
			Amount:    d.AmountMinor,
			Currency:  d.Currency,
			Gloss:     d.Gloss,
			Status:    d.StatusLabel,
			CreatedAt: d.CreatedAt,
			ExpiresAt: d.ExpiresAt,
			PaidAt:    d.PaidAt,
			SingleUse: d.SingleUse,
		})
	}

	writeJSON(w, http.StatusOK, reconciliationResponse{
		Date:      report.Date.Format(reconciliationDateLayout),
		TotalQRs:  len(details),
		QRDetails: details,
		Summary: summaryDTO{
			TotalAmount: report.Summary.TotalAmountMinor,
			PaidQRs:     report.Summary.PaidQRs,
			PendingQRs:  report.Summary.PendingQRs,
			ExpiredQRs:  report.Summary.ExpiredQRs,
			ErrorQRs:    report.Summary.ErrorQRs,
		},
	})
}

type checkQRsRequest struct {
	QRIDs []string `json:"qrIds"`
}

type checkResultDTO struct {
	QRID    string `json:"qrId"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type checkQRsResponse struct {
	Results []checkResultDTO `json:"results"`
}

// CheckQRs проверяет статусы перечисленных QR, сохраняя порядок входа.
func (h *PaymentHandler) CheckQRs(w http.ResponseWriter, r *http.Request) {
	var req checkQRsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.QRIDs) == 0 {
		writeError(w, http.StatusBadRequest, "qrIds must not be empty")
		return
	}

	results := h.engine.CheckMany(req.QRIDs)

	out := make([]checkResultDTO, 0, len(results))
	for _, res := range results {
		dto := checkResultDTO{QRID: res.QRID}
		if res.Err != "" {
			dto.Error = res.Err
		} else {
			dto.Status = res.StatusLabel
		}
		out = append(out, dto)
	}

	writeJSON(w, http.StatusOK, checkQRsResponse{Results: out})
}
