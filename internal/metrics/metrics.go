// Package metrics exposes mutation and remote-store metrics in the
// Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sheetsync/internal/record"
	"sheetsync/internal/remote"
	"sheetsync/internal/store"
)

const namespace = "sheetsync"

// Collector owns a private registry so tests and multiple stores in one
// process never collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	Mutations       *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
	Records         *prometheus.GaugeVec
}

// NewCollector creates a Collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Create, update and delete operations by outcome.",
		}, []string{"kind", "op", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Round-trip time of remote store requests.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"kind", "action"}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_request_errors_total",
			Help:      "Failed remote store requests by error class.",
		}, []string{"kind", "action", "class"}),
		Records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_records",
			Help:      "Records currently held in the local collection.",
		}, []string{"kind"}),
	}
	c.registry.MustRegister(c.Mutations, c.RequestDuration, c.RequestErrors, c.Records)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveMutation implements store.MutationObserver.
func (c *Collector) ObserveMutation(kind string, op store.Op, status store.Status) {
	c.Mutations.WithLabelValues(kind, string(op), string(status)).Inc()
}

// ObserveCollectionSize implements store.MutationObserver.
func (c *Collector) ObserveCollectionSize(kind string, n int) {
	c.Records.WithLabelValues(kind).Set(float64(n))
}

// ObserveRequest implements remote.Observer.
func (c *Collector) ObserveRequest(kind, action string, d time.Duration, err error) {
	c.RequestDuration.WithLabelValues(kind, action).Observe(d.Seconds())
	if err != nil {
		c.RequestErrors.WithLabelValues(kind, action, errorClass(err)).Inc()
	}
}

func errorClass(err error) string {
	switch {
	case record.IsApplication(err):
		return "application"
	case record.IsConnection(err):
		return "connection"
	}
	return "other"
}

var (
	_ store.MutationObserver = (*Collector)(nil)
	_ remote.Observer        = (*Collector)(nil)
)
