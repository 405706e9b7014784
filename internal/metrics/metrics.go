// Package metrics exposes resolver and HTTP counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/theoria/internal/browser"
)

const namespace = "theoria"

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	structure *prometheus.CounterVec
	content   *prometheus.CounterVec
	views     prometheus.Counter
	rebuilds  prometheus.Counter
}

var _ browser.Observer = (*Metrics)(nil)

// New registers every collector on a fresh registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		structure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "structure_resolutions_total",
			Help:      "Structure resolutions by source and fallback cause.",
		}, []string{"source", "cause"}),
		content: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_resolutions_total",
			Help:      "Content resolutions by outcome.",
		}, []string{"outcome"}),
		views: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_views_total",
			Help:      "Recorded content views.",
		}),
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_rebuilds_total",
			Help:      "Catalog rebuilds triggered by vault changes.",
		}),
	}
	m.reg.MustRegister(
		m.structure,
		m.content,
		m.views,
		m.rebuilds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// StructureResolved implements browser.Observer.
func (m *Metrics) StructureResolved(src browser.Source, cause string) {
	m.structure.WithLabelValues(string(src), cause).Inc()
}

// ContentResolved implements browser.Observer.
func (m *Metrics) ContentResolved(outcome browser.Outcome) {
	m.content.WithLabelValues(string(outcome)).Inc()
}

// ViewRecorded counts one stored content view.
func (m *Metrics) ViewRecorded() { m.views.Inc() }

// CatalogRebuilt counts one catalog rebuild.
func (m *Metrics) CatalogRebuilt() { m.rebuilds.Inc() }

// TrackSubscribers exports count as the number of connected event stream
// clients. Call it once.
func (m *Metrics) TrackSubscribers(count func() int) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_subscribers",
		Help:      "Connected server-sent event clients.",
	}, func() float64 { return float64(count()) }))
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
