package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/qrpay/internal/domain"
)

// envelope — единый конверт ответов для операций над заказами.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Success: false, Message: message})
}

// statusForError переводит доменные ошибки в HTTP-статусы.
// Валидация и нарушение инвариантов перехода — 400, отсутствующий
// заказ — 404, всё остальное — отказ хранилища, 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOrderIDRequired),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidAmount),
		domain.IsInvalidTransition(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
