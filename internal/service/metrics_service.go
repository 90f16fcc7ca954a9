package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the token lifecycle.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	tokensIssued    *prometheus.CounterVec
	silentRefreshes *prometheus.CounterVec
	blacklistHits   prometheus.Counter
	registrations   *prometheus.CounterVec
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

	tokensIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_tokens_issued_total",
		Help: "Total tokens minted, by token type",
	}, []string{"token_type"})

	silentRefreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_silent_refresh_total",
		Help: "Silent access token refresh attempts, by outcome",
	}, []string{"outcome"})

	blacklistHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_blacklist_hits_total",
		Help: "Requests rejected because the presented token was blacklisted",
	})

	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Registration attempts, by outcome",
	}, []string{"outcome"})

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestDuration,
		requestTotal,
		tokensIssued,
		silentRefreshes,
		blacklistHits,
		registrations,
	)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		tokensIssued:    tokensIssued,
		silentRefreshes: silentRefreshes,
		blacklistHits:   blacklistHits,
		registrations:   registrations,
	}
}

// Handler exposes the scrape endpoint for this service's registry.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveRequest records one completed HTTP request.
func (s *MetricsService) ObserveRequest(method, path, status string, duration time.Duration) {
	s.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, status).Inc()
}

// TokenIssued counts a minted token of the given type.
func (s *MetricsService) TokenIssued(tokenType string) {
	s.tokensIssued.WithLabelValues(tokenType).Inc()
}

// SilentRefresh counts a silent refresh attempt with outcome "ok" or
// "rejected".
func (s *MetricsService) SilentRefresh(ok bool) {
	outcome := "rejected"
	if ok {
		outcome = "ok"
	}
	s.silentRefreshes.WithLabelValues(outcome).Inc()
}

// BlacklistHit counts a request carrying a revoked token.
func (s *MetricsService) BlacklistHit() {
	s.blacklistHits.Inc()
}

// Registration counts a registration attempt with outcome "ok",
// "duplicate_email", or "error".
func (s *MetricsService) Registration(outcome string) {
	s.registrations.WithLabelValues(outcome).Inc()
}
