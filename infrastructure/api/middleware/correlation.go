package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/atas-platform/atas/internal/log"
)

// CorrelationHeader carries the correlation id in and out of requests.
const CorrelationHeader = "X-Correlation-ID"

// Correlation reuses the caller's correlation id or mints one, stores it in
// the request context and echoes it in the response.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(log.WithCorrelationID(r.Context(), id)))
	})
}
