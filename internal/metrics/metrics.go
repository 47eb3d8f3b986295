package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readshelf_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readshelf_recommendation_requests_total",
			Help: "Recommendation requests by result source label",
		},
		[]string{"source"},
	)

	RecommendationResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "readshelf_recommendation_results",
			Help:    "Number of recommendations returned per request",
			Buckets: []float64{0, 1, 3, 5, 10, 15, 20},
		},
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readshelf_provider_requests_total",
			Help: "External provider calls by provider and outcome (success, failure, rejected)",
		},
		[]string{"provider", "outcome"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readshelf_provider_request_duration_seconds",
			Help:    "External provider call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "readshelf_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

func RecordHTTPRequest(method, route, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

func RecordProviderCall(provider, outcome string, d time.Duration) {
	ProviderRequests.WithLabelValues(provider, outcome).Inc()
	if outcome != "rejected" {
		ProviderDuration.WithLabelValues(provider).Observe(d.Seconds())
	}
}

func RecordRecommendation(source string, count int) {
	RecommendationRequests.WithLabelValues(source).Inc()
	RecommendationResults.Observe(float64(count))
}
