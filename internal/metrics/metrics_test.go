package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SessionOperationsTotal,
		AutosaveAttemptsTotal,
		AutosaveDuration,
	}
	for _, c := range collectors {
		assert.NotNil(t, c)
	}
}

func TestAutosaveAttemptsTotal_Labels(t *testing.T) {
	before := testutil.ToFloat64(AutosaveAttemptsTotal.WithLabelValues("backup", "skipped_unchanged"))
	AutosaveAttemptsTotal.WithLabelValues("backup", "skipped_unchanged").Inc()
	after := testutil.ToFloat64(AutosaveAttemptsTotal.WithLabelValues("backup", "skipped_unchanged"))
	assert.Equal(t, before+1, after)
}
