package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAreLabelled(t *testing.T) {
	m := NewMetrics()

	m.ObserveRequest("/api/entity/{id}", "GET", 200, 5*time.Millisecond)
	m.ObserveRequest("/api/entity/{id}", "GET", 200, 5*time.Millisecond)
	m.ObserveRequest("", "GET", 404, time.Millisecond)
	m.SearchEvaluated("ok")
	m.TxRolledBack("entity.save")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/entity/{id}", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("unmatched", "GET", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchEvaluation.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.txRollbacks.WithLabelValues("entity.save")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("/x", "GET", 200, time.Millisecond)
		m.SearchEvaluated("error")
		m.TxRolledBack("entity.save")
	})
}
