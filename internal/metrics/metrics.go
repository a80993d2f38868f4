package metrics

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"status", "method", "route"})
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	CloudflareRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudflare_requests_total",
		Help: "Cloudflare API calls by operation and outcome",
	}, []string{"op", "outcome"})
	QuotaConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quota_consumed_total",
		Help: "Forwarding rules created against user quota",
	})
	CardRedemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "card_redemptions_total",
		Help: "Card code redemption attempts by outcome",
	}, []string{"outcome"})
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Notification mails by kind and outcome",
	}, []string{"kind", "outcome"})
)

var (
	requestCount atomic.Int64
	errorCount   atomic.Int64
)

// ObserveRequest records one served request in both Prometheus and the
// in-process counters behind the admin status page.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(strconv.Itoa(status), method, route).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(route).Observe(elapsed.Seconds())
	requestCount.Add(1)
	if status >= 500 {
		errorCount.Add(1)
	}
}

// RequestSnapshot returns requests served since start and the share that
// ended in a 5xx, as a percentage.
func RequestSnapshot() (total int64, errorRate float64) {
	total = requestCount.Load()
	if total == 0 {
		return 0, 0
	}
	return total, float64(errorCount.Load()) / float64(total) * 100
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
