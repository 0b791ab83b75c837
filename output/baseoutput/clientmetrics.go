package baseoutput

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/util"
)

// clientMetrics defines metrics shared by network-based output clients
type clientMetrics struct {
	networkErrorsTotal     prometheus.Counter
	nonNetworkErrorsTotal  prometheus.Counter
	openedSessionsTotal    prometheus.Counter
	forwardAttemptsTotal   prometheus.Counter
	forwardedCountTotal    prometheus.Counter
	acknowledgedCountTotal prometheus.Counter
	acknowledgedLogsTotal  prometheus.Counter
}

func newClientMetrics(metricFactory *base.MetricFactory, transportType string) clientMetrics {
	factory := metricFactory.NewSubFactory("transport_", []string{"transport"}, []string{transportType})
	return clientMetrics{
		networkErrorsTotal:     factory.AddOrGetCounter("network_errors_total", "Numbers of network errors", nil, nil),
		nonNetworkErrorsTotal:  factory.AddOrGetCounter("nonnetwork_errors_total", "Numbers of non-network errors (auth, unexpected response, etc) from upstream", nil, nil),
		openedSessionsTotal:    factory.AddOrGetCounter("opened_sessions_total", "Numbers of opened sessions", nil, nil),
		forwardAttemptsTotal:   factory.AddOrGetCounter("forward_attempts_total", "Numbers of chunk forwarding attempts", nil, nil),
		forwardedCountTotal:    factory.AddOrGetCounter("forwarded_chunks_total", "Numbers of forwarded chunks", nil, nil),
		acknowledgedCountTotal: factory.AddOrGetCounter("acknowledged_chunks_total", "Numbers of acknowledged chunks", nil, nil),
		acknowledgedLogsTotal:  factory.AddOrGetCounter("acknowledged_logs_total", "Numbers of logs in acknowledged chunks", nil, nil),
	}
}

func (metrics *clientMetrics) OnError(err error) {
	if util.IsNetworkError(err) {
		metrics.networkErrorsTotal.Inc()
	} else {
		metrics.nonNetworkErrorsTotal.Inc()
	}
}

func (metrics *clientMetrics) OnOpening() {
	metrics.openedSessionsTotal.Inc()
}

func (metrics *clientMetrics) OnForwarding(chunk base.LogChunk) {
	metrics.forwardAttemptsTotal.Inc()
}

func (metrics *clientMetrics) OnForwarded(chunk base.LogChunk) {
	metrics.forwardedCountTotal.Inc()
}

func (metrics *clientMetrics) OnAcknowledged(chunk base.LogChunk) {
	metrics.acknowledgedCountTotal.Inc()
	metrics.acknowledgedLogsTotal.Add(float64(len(chunk.Logs)))
}
