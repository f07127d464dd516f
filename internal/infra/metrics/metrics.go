package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ChecksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monitor_checks_total",
		Help: "Количество проверок страниц выдачи",
	})
	FetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monitor_fetch_errors_total",
		Help: "Ошибки загрузки страниц выдачи",
	})
	ListingsReported = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monitor_listings_reported_total",
		Help: "Количество отправленных уведомлений о новых объявлениях",
	})
	ListingsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_listings_skipped_total",
		Help: "Пропущенные объявления по причинам",
	}, []string{"reason"})
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ChecksTotal,
		FetchErrors,
		ListingsReported,
		ListingsSkipped,
		BotSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	status := strconv.FormatBool(err == nil)
	elapsed := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(elapsed)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncListingSkipped увеличивает счётчик пропусков по причине.
func IncListingSkipped(reason string) {
	ListingsSkipped.WithLabelValues(reason).Inc()
}
