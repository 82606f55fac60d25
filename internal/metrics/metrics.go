// Package metrics exposes Prometheus instrumentation for the loan matchmaker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "loan_matchmaker"

// Recorder holds the collectors for one process. A nil *Recorder is valid and
// records nothing, which keeps tests free of registry setup.
type Recorder struct {
	parameterUpdates  *prometheus.CounterVec
	stateTransitions  *prometheus.CounterVec
	matchRuns         *prometheus.CounterVec
	matchDuration     *prometheus.HistogramVec
	matchesReturned   prometheus.Histogram
	mlFallbacks       *prometheus.CounterVec
	collaboratorCalls *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		// Labels: parameter, outcome (accepted, rejected)
		parameterUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "params",
			Name:      "updates_total",
			Help:      "Parameter updates by parameter and outcome",
		}, []string{"parameter", "outcome"}),

		// Labels: from, to
		stateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "state_transitions_total",
			Help:      "Conversation state transitions",
		}, []string{"from", "to"}),

		// Labels: method (rule_based, ml)
		matchRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "runs_total",
			Help:      "Matching runs by the scorer that produced the final ranking",
		}, []string{"method"}),

		matchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "run_duration_seconds",
			Help:      "Matching run latency",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method"}),

		matchesReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "matches_returned",
			Help:      "Number of eligible lenders per matching run",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),

		// Labels: reason (error, timeout, malformed)
		mlFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "ml_fallbacks_total",
			Help:      "Matching runs that fell back from the ML scorer to the rule scorer",
		}, []string{"reason"}),

		// Labels: collaborator (extractor, advisor, predictor), outcome (ok, retry, error)
		collaboratorCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collaborator",
			Name:      "calls_total",
			Help:      "External collaborator calls by outcome",
		}, []string{"collaborator", "outcome"}),

		// Labels: route, status
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ParameterUpdate records an accepted or rejected parameter write.
func (r *Recorder) ParameterUpdate(parameter string, accepted bool) {
	if r == nil {
		return
	}
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	r.parameterUpdates.WithLabelValues(parameter, outcome).Inc()
}

// StateTransition records a conversation state change.
func (r *Recorder) StateTransition(from, to string) {
	if r == nil {
		return
	}
	r.stateTransitions.WithLabelValues(from, to).Inc()
}

// MatchRun records a completed matching run.
func (r *Recorder) MatchRun(method string, elapsed time.Duration, matches int) {
	if r == nil {
		return
	}
	r.matchRuns.WithLabelValues(method).Inc()
	r.matchDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	r.matchesReturned.Observe(float64(matches))
}

// MLFallback records a fallback from the ML scorer.
func (r *Recorder) MLFallback(reason string) {
	if r == nil {
		return
	}
	r.mlFallbacks.WithLabelValues(reason).Inc()
}

// CollaboratorCall records the outcome of an external collaborator call.
func (r *Recorder) CollaboratorCall(collaborator, outcome string) {
	if r == nil {
		return
	}
	r.collaboratorCalls.WithLabelValues(collaborator, outcome).Inc()
}

// HTTPRequest records a served HTTP request.
func (r *Recorder) HTTPRequest(route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, statusLabel(status)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
