// Package metrics holds the node's prometheus collectors.  They register on
// the default registry, which litrpc serves at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "litnode_event_queue_depth",
		Help: "Number of user events waiting to be handled",
	})

	eventsPushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litnode_events_pushed_total",
		Help: "User events queued by type",
	}, []string{"type"})

	persistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litnode_persist_failures_total",
		Help: "Failed writes to the blob store by key",
	}, []string{"key"})

	syncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "litnode_sync_duration_seconds",
		Help:    "Duration of wallet and chain sync rounds",
		Buckets: prometheus.DefBuckets,
	}, []string{"target", "outcome"}) // target=wallet|chain outcome=success|failure

	connectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litnode_connect_attempts_total",
		Help: "Outbound peer connection attempts by outcome",
	}, []string{"outcome"}) // outcome=success|already|failure

	inboundConns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "litnode_inbound_connections_total",
		Help: "Accepted inbound TCP connections",
	})

	payments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litnode_payments_total",
		Help: "Payments by direction and final status",
	}, []string{"direction", "status"})

	nodeRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "litnode_running",
		Help: "Whether the node runtime is up (1) or not (0)",
	})
)

func SetEventQueueDepth(n int) {
	eventQueueDepth.Set(float64(n))
}

func IncEventPushed(eventType string) {
	eventsPushed.WithLabelValues(eventType).Inc()
}

func IncPersistFailure(key string) {
	persistFailures.WithLabelValues(key).Inc()
}

// ObserveSync records one sync round of target started at start.
func ObserveSync(target string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	syncDuration.WithLabelValues(target, outcome).Observe(time.Since(start).Seconds())
}

func IncConnectAttempt(outcome string) {
	connectAttempts.WithLabelValues(outcome).Inc()
}

func IncInboundConn() {
	inboundConns.Inc()
}

func IncPayment(direction, status string) {
	payments.WithLabelValues(direction, status).Inc()
}

func SetRunning(running bool) {
	if running {
		nodeRunning.Set(1)
	} else {
		nodeRunning.Set(0)
	}
}
