package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_CountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ParameterUpdate("loanAmount", true)
	r.ParameterUpdate("loanAmount", true)
	r.ParameterUpdate("creditScore", false)
	r.MLFallback("timeout")
	r.MatchRun("rule_based", 3*time.Millisecond, 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.parameterUpdates.WithLabelValues("loanAmount", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.parameterUpdates.WithLabelValues("creditScore", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.mlFallbacks.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.matchRuns.WithLabelValues("rule_based")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.ParameterUpdate("loanAmount", true)
		r.StateTransition("collecting", "ready_to_match")
		r.MatchRun("ml", time.Second, 1)
		r.MLFallback("error")
		r.CollaboratorCall("advisor", "ok")
		r.HTTPRequest("/health", 200, time.Millisecond)
	})
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "2xx", statusLabel(200))
	assert.Equal(t, "4xx", statusLabel(409))
	assert.Equal(t, "5xx", statusLabel(503))
}
