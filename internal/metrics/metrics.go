// Package metrics exposes Prometheus collectors for AI calls, generated
// recommendations and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/model"
)

const namespace = "health_advisor"

type Metrics struct {
	aiCalls         *prometheus.CounterVec
	aiRetries       *prometheus.CounterVec
	aiCallDuration  prometheus.Histogram
	recommendations *prometheus.CounterVec
	enrichment      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		aiCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_calls_total",
			Help:      "AI provider calls by outcome",
		}, []string{"outcome"}),
		aiRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_call_retries_total",
			Help:      "AI provider retries by failure cause",
		}, []string{"cause"}),
		aiCallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_call_duration_seconds",
			Help:      "Wall time of AI provider calls including retries",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120, 180},
		}),
		recommendations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by kind and result",
		}, []string{"kind", "result"}),
		enrichment: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_enrichment_total",
			Help:      "Workout plans by whether any video link was replaced",
		}, []string{"applied"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveCall implements model.Observer.
func (m *Metrics) ObserveCall(outcome string, retries []model.Attempt, elapsed time.Duration) {
	m.aiCalls.WithLabelValues(outcome).Inc()
	for _, r := range retries {
		m.aiRetries.WithLabelValues(r.Cause.String()).Inc()
	}
	if outcome != model.OutcomeDisabled {
		m.aiCallDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObserveRecommendation(kind domain.Kind, result string) {
	m.recommendations.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) ObserveEnrichment(applied bool) {
	m.enrichment.WithLabelValues(strconv.FormatBool(applied)).Inc()
}

// Middleware records request counts and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
