package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	dto "github.com/prometheus/client_model/go"
)

func TestObservePoolStatsOnlyAddsDelta(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("test_pool_stats", reg)

	m.ObservePoolStats(4, 2, 3)
	m.ObservePoolStats(4, 1, 3)
	m.ObservePoolStats(4, 2, 5)

	assert.Equal(t, float64(5), counterValue(t, m.BrowserPoolRestarts))
}

func TestRendersTotalByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("test_renders", reg)

	m.RendersTotal.WithLabelValues("success").Inc()
	m.RendersTotal.WithLabelValues("success").Inc()
	m.RendersTotal.WithLabelValues("server_busy").Inc()

	assert.Equal(t, float64(2), counterValue(t, m.RendersTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), counterValue(t, m.RendersTotal.WithLabelValues("server_busy")))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("writing metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}
