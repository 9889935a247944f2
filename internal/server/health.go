package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"telegram_consult_bot/internal/storage"
)

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
	Runtime   map[string]any    `json:"runtime,omitempty"`
}

// HealthChecker проверяет состояние системы
type HealthChecker struct {
	storage   storage.Storage
	startTime time.Time
}

// NewHealthChecker создает новый health checker
func NewHealthChecker(store storage.Storage) *HealthChecker {
	return &HealthChecker{
		storage:   store,
		startTime: time.Now(),
	}
}

// HealthHandler обрабатывает запросы health check
func (h *HealthChecker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "healthy"

	if err := h.checkDatabase(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	} else {
		checks["database"] = "healthy"
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).String(),
		Checks:    checks,
		Runtime: map[string]any{
			"goroutines":  runtime.NumGoroutine(),
			"alloc_bytes": m.Alloc,
			"num_gc":      m.NumGC,
			"go_version":  runtime.Version(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

func (h *HealthChecker) checkDatabase(ctx context.Context) error {
	if h.storage == nil {
		return nil
	}
	return h.storage.Ping(ctx)
}
