package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики консультационного бота
var (
	// Метрики обработки обновлений
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consult_bot_updates_total",
			Help: "Общее количество обработанных обновлений Telegram",
		},
		[]string{"handler", "status"},
	)

	// Метрики слотов
	SlotsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consult_bot_slots_generated_total",
			Help: "Общее количество созданных слотов",
		},
	)

	GenerationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consult_bot_generation_runs_total",
			Help: "Общее количество прогонов генератора слотов",
		},
		[]string{"policy", "status"},
	)

	FreeSlots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "consult_bot_free_slots",
			Help: "Количество свободных будущих слотов",
		},
	)

	// Метрики резервирования
	ClaimsWon = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consult_bot_claims_won_total",
			Help: "Количество успешных захватов слота",
		},
	)

	ClaimsLost = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consult_bot_claims_lost_total",
			Help: "Количество захватов, проигравших гонку или попавших в занятый слот",
		},
	)

	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consult_bot_bookings_created_total",
			Help: "Общее количество созданных бронирований",
		},
	)

	BookingsPaid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consult_bot_bookings_paid_total",
			Help: "Общее количество оплаченных бронирований",
		},
	)

	BookingsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consult_bot_bookings_expired_total",
			Help: "Количество бронирований, отмененных по таймауту оплаты",
		},
	)

	// Метрики внешних сервисов
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consult_bot_upstream_errors_total",
			Help: "Количество ошибок внешних сервисов (calendar, sheets, telegram)",
		},
		[]string{"upstream"},
	)

	SheetAppends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consult_bot_sheet_appends_total",
			Help: "Количество записей анкет в Google Sheets",
		},
		[]string{"status"},
	)

	// Метрики HTTP сервера
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consult_bot_http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consult_bot_http_request_duration_seconds",
			Help:    "Время обработки HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordUpdate записывает метрику обработки обновления
func RecordUpdate(handler, status string) {
	UpdatesTotal.WithLabelValues(handler, status).Inc()
}

// RecordGenerationRun записывает метрику прогона генератора
func RecordGenerationRun(policy, status string) {
	GenerationRuns.WithLabelValues(policy, status).Inc()
}

// RecordClaim записывает метрику захвата слота
func RecordClaim(won bool) {
	if won {
		ClaimsWon.Inc()
		return
	}
	ClaimsLost.Inc()
}

// RecordUpstreamError записывает метрику ошибки внешнего сервиса
func RecordUpstreamError(upstream string) {
	UpstreamErrors.WithLabelValues(upstream).Inc()
}

// RecordSheetAppend записывает метрику записи анкеты в таблицу
func RecordSheetAppend(status string) {
	SheetAppends.WithLabelValues(status).Inc()
}

// RecordHTTPRequest записывает метрику HTTP запроса
func RecordHTTPRequest(method, endpoint, status string) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}
