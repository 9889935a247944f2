package middleware

import (
	"net/http"
	"strconv"
	"time"

	"telegram_consult_bot/pkg/metrics"
)

// Prometheus записывает метрики по каждому HTTP запросу
func Prometheus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		metrics.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(wrapped.statusCode))
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).
			Observe(time.Since(start).Seconds())
	})
}

// statusWriter оборачивает http.ResponseWriter для захвата статус-кода
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}
