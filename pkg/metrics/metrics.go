// Package metrics holds the Prometheus collectors of the account service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	AccountsCreated   prometheus.Counter
	StatusChanges     *prometheus.CounterVec
	CacheRequests     *prometheus.CounterVec
	CacheErrors       *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	TokensSwept       prometheus.Counter
	AccountsPurged    prometheus.Counter
	RateLimited       *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPRequestTiming *prometheus.HistogramVec
}

// New registers every collector on reg. Tests pass prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		AccountsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "account_service_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "account_service_status_changes_total",
			Help: "Account status transitions by target status",
		}, []string{"status"}),
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "account_service_cache_requests_total",
			Help: "Account cache lookups by result (hit, miss)",
		}, []string{"result"}),
		CacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "account_service_cache_errors_total",
			Help: "Cache operations that degraded to a miss or no-op",
		}, []string{"op"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "account_service_events_published_total",
			Help: "Domain events handed to the bus by type and outcome",
		}, []string{"type", "outcome"}),
		TokensSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "account_service_verification_tokens_swept_total",
			Help: "Expired verification tokens removed by housekeeping",
		}),
		AccountsPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "account_service_accounts_purged_total",
			Help: "Soft-deleted accounts removed after the retention period",
		}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "account_service_rate_limited_total",
			Help: "Requests rejected by the rate limiter by scope",
		}, []string{"scope"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "account_service_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestTiming: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "account_service_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func (m *Metrics) IncrementAccountsCreated() {
	if m == nil {
		return
	}
	m.AccountsCreated.Inc()
}

func (m *Metrics) IncrementStatusChange(status string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementCacheError(op string) {
	if m == nil {
		return
	}
	m.CacheErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) ObservePublish(eventType string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) AddTokensSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.TokensSwept.Add(float64(n))
}

func (m *Metrics) AddAccountsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.AccountsPurged.Add(float64(n))
}

func (m *Metrics) IncrementRateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(scope).Inc()
}

// Middleware records request count and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestTiming.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
