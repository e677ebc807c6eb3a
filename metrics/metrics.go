package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "location_form"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	gatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Remote geographic API requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Latency of remote geographic API requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	staleResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "stale_responses_total",
			Help:      "Option list responses discarded because a newer selection superseded them",
		},
		[]string{"level"},
	)

	submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "submissions_total",
			Help:      "Form submissions by outcome",
		},
		[]string{"outcome"},
	)

	activeForms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "forms",
			Name:      "active",
			Help:      "Form sessions currently held in memory",
		},
	)
)

// ObserveGatewayRequest records one remote call.
func ObserveGatewayRequest(operation string, started time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	gatewayRequests.WithLabelValues(operation, outcome).Inc()
	gatewayDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func IncStaleResponse(level string) {
	staleResponses.WithLabelValues(level).Inc()
}

func IncSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}

func FormOpened() {
	activeForms.Inc()
}

func FormClosed() {
	activeForms.Dec()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
