package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const operatorTokenHeader = "X-Operator-Token"

// RequireOperatorToken проверяет уже выданный оператору токен.
// Сама аутентификация живёт во внешнем контуре; пустой ожидаемый токен
// означает, что проверка делегирована туда целиком.
func RequireOperatorToken(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(operatorTokenHeader)
			if token == "" {
				// Допускаем и стандартный Bearer-заголовок.
				token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				writeError(w, http.StatusUnauthorized, "operator authorization required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
