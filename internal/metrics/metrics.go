package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the cart instruments on their own registry so tests can
// build as many as they like.
type Metrics struct {
	registry     *prometheus.Registry
	mutations    *prometheus.CounterVec
	loadFailures *prometheus.CounterVec
	cartSize     prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etr",
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Cart mutations by operation and result.",
		}, []string{"op", "result"}),
		loadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etr",
			Subsystem: "cart",
			Name:      "load_failures_total",
			Help:      "Persisted carts that could not be read and were treated as empty.",
		}, []string{"reason"}),
		cartSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "etr",
			Subsystem: "cart",
			Name:      "items_per_cart",
			Help:      "Item count of carts after each saved mutation.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
	}
	reg.MustRegister(
		m.mutations,
		m.loadFailures,
		m.cartSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Mutation(op, result string) {
	m.mutations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) LoadFailure(reason string) {
	m.loadFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) CartSize(count int) {
	m.cartSize.Observe(float64(count))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
