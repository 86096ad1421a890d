package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the coordinator.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	claimCalls        prometheus.Counter
	claimedCases      prometheus.Counter
	leaseRenewals     prometheus.Counter
	leaseReleases     prometheus.Counter
	leaseExpirations  prometheus.Counter
	completions       *prometheus.CounterVec
	idempotentReplays prometheus.Counter
	notifications     *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	claimCalls := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lease_claim_calls_total",
		Help: "Total claim calls issued by extraction workers",
	})

	claimedCases := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lease_claimed_cases_total",
		Help: "Total cases handed out under a lease",
	})

	leaseRenewals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lease_renewals_total",
		Help: "Total successful lease renewals",
	})

	leaseReleases := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lease_releases_total",
		Help: "Total voluntary lease releases",
	})

	leaseExpirations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lease_expirations_total",
		Help: "Total leases swept to stale after expiry",
	})

	completions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "extraction_completions_total",
		Help: "Total extraction completions by outcome",
	}, []string{"outcome"})

	idempotentReplays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idempotent_replays_total",
		Help: "Total mutating requests answered from the idempotency ledger",
	})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Total lifecycle notifications appended",
	}, []string{"event"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, claimCalls, claimedCases,
		leaseRenewals, leaseReleases, leaseExpirations, completions,
		idempotentReplays, notifications, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		claimCalls:        claimCalls,
		claimedCases:      claimedCases,
		leaseRenewals:     leaseRenewals,
		leaseReleases:     leaseReleases,
		leaseExpirations:  leaseExpirations,
		completions:       completions,
		idempotentReplays: idempotentReplays,
		notifications:     notifications,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveClaim records one claim call handing out n cases.
func (m *MetricsService) ObserveClaim(n int) {
	if m == nil {
		return
	}
	m.claimCalls.Inc()
	m.claimedCases.Add(float64(n))
}

// ObserveRenewal counts a successful lease renewal.
func (m *MetricsService) ObserveRenewal() {
	if m == nil {
		return
	}
	m.leaseRenewals.Inc()
}

// ObserveRelease counts a voluntary lease release.
func (m *MetricsService) ObserveRelease() {
	if m == nil {
		return
	}
	m.leaseReleases.Inc()
}

// ObserveExpirations counts leases swept to stale.
func (m *MetricsService) ObserveExpirations(n int64) {
	if m == nil || n == 0 {
		return
	}
	m.leaseExpirations.Add(float64(n))
}

// ObserveCompletion counts an extraction completion by outcome.
func (m *MetricsService) ObserveCompletion(outcome string) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(outcome).Inc()
}

// ObserveIdempotentReplay counts a request served from the ledger.
func (m *MetricsService) ObserveIdempotentReplay() {
	if m == nil {
		return
	}
	m.idempotentReplays.Inc()
}

// ObserveNotification counts an appended lifecycle event.
func (m *MetricsService) ObserveNotification(event string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(event).Inc()
}
