package dispatch

import "github.com/prometheus/client_golang/prometheus"

// metrics wires the dispatcher's own throughput and latency into a
// private prometheus.Registry — never the global default one — so an
// Engine embedded in a larger process cannot collide with that process's
// own metric names. Grounded in luxfi-dex/pkg/metrics/lux_metrics.go's
// NewLXMetrics, which builds the same kind of namespaced registry of
// counters/gauges/histograms around order-book activity.
type metrics struct {
	registry *prometheus.Registry

	ordersAdmitted  prometheus.Counter
	ordersRejected  *prometheus.CounterVec
	fillsExecuted   prometheus.Counter
	queueDepth      prometheus.Gauge
	matchingLatency prometheus.Histogram
}

func newMetrics(namespace string) *metrics {
	registry := prometheus.NewRegistry()

	m := &metrics{
		registry: registry,
		ordersAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_admitted_total",
			Help:      "Total number of orders accepted onto the pending queue.",
		}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Total number of orders rejected at admission, by reason.",
		}, []string{"reason"}),
		fillsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fills_executed_total",
			Help:      "Total number of fill legs executed across all symbols.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_queue_depth",
			Help:      "Current number of orders waiting in the pending queue.",
		}),
		matchingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "matching_latency_seconds",
			Help:      "Latency of a single Book.Process call, from dequeue to return.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(m.ordersAdmitted, m.ordersRejected, m.fillsExecuted, m.queueDepth, m.matchingLatency)
	return m
}

// Registry exposes the private registry so callers can serve it (e.g.
// via promhttp.HandlerFor in cmd/matchengine-server).
func (m *metrics) Registry() *prometheus.Registry { return m.registry }
