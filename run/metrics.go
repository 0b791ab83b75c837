package run

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/relex/slog-shipper/base"
)

// lifecycleMetrics counts lifecycle changes requested by signals
type lifecycleMetrics struct {
	suspendsTotal prometheus.Counter
	resumesTotal  prometheus.Counter
}

func newLifecycleMetrics(metricFactory *base.MetricFactory) lifecycleMetrics {
	vec := metricFactory.AddOrGetCounterVec("lifecycle_changes_total", "Numbers of lifecycle changes of all outputs", []string{"action"}, nil)
	return lifecycleMetrics{
		suspendsTotal: vec.WithLabelValues("suspend"),
		resumesTotal:  vec.WithLabelValues("resume"),
	}
}
