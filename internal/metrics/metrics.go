// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ForecastDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "predictiboot",
			Subsystem: "forecast",
			Name:      "duration_seconds",
			Help:      "Wall time of one forecast, including model training",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"method"},
	)

	ForecastErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictiboot",
			Subsystem: "forecast",
			Name:      "errors_total",
			Help:      "Failed forecasts by method and error kind",
		},
		[]string{"method", "kind"},
	)

	PredictedPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "predictiboot",
			Subsystem: "forecast",
			Name:      "predicted_price",
			Help:      "Latest predicted close per watchlist stock code",
		},
		[]string{"code", "method"},
	)

	ScrapeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "predictiboot",
			Subsystem: "collector",
			Name:      "duration_seconds",
			Help:      "Latency of upstream data fetches",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source", "operation"},
	)

	ScrapeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictiboot",
			Subsystem: "collector",
			Name:      "errors_total",
			Help:      "Failed upstream fetches",
		},
		[]string{"source", "operation"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictiboot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "predictiboot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"route", "method"},
	)

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictiboot",
			Subsystem: "notifier",
			Name:      "messages_total",
			Help:      "Telegram messages by outcome",
		},
		[]string{"outcome"},
	)
)

// Register adds every collector to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ForecastDuration, ForecastErrors, PredictedPrice,
			ScrapeDuration, ScrapeErrors,
			HTTPRequests, HTTPDuration,
			NotificationsSent,
		)
	})
}
