package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAdjustment(t *testing.T) {
	m := New("granja_test")

	m.RecordAdjustment("sale", "apply", "ok")
	m.RecordAdjustment("sale", "apply", "ok")
	m.RecordAdjustment("sale", "apply", "insufficient_stock")
	m.RecordVersionConflict()
	m.RecordProvisioned()
	m.RecordHTTPRequest("GET", "/api/sales", 200, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerAdjustments.WithLabelValues("sale", "apply", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerAdjustments.WithLabelValues("sale", "apply", "insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerVersionConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SupplyItemsProvisioned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/sales", "200")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAdjustment("purchase", "apply", "ok")
		m.RecordVersionConflict()
		m.RecordProvisioned()
		m.RecordHTTPRequest("POST", "/api/purchases", 201, time.Millisecond)
	})
}
