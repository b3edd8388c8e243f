package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/market-alerts/internal/alert"
	"github.com/rickgao/market-alerts/internal/model"
)

const namespace = "alerts"

// Metrics owns a registry and the lifecycle counters fed by the alert
// manager. It implements alert.Observer.
type Metrics struct {
	alert.NopObserver

	registry *prometheus.Registry

	created   prometheus.Counter
	destroyed prometheus.Counter
	statuses  *prometheus.CounterVec
	triggers  *prometheus.CounterVec
	transmits *prometheus.CounterVec
	cancels   prometheus.Counter
}

// New creates a Metrics with its own registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "created_total",
			Help:      "Alerts added to the manager.",
		}),
		destroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "destroyed_total",
			Help:      "Alerts removed from the manager.",
		}),
		statuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Status changes by new status.",
		}, []string{"status"}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Trigger events by exchange.",
		}, []string{"exchange"}),
		transmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transmits_total",
			Help:      "Create requests sent to the alerts service by result.",
		}, []string{"result"}),
		cancels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancels_total",
			Help:      "Cancels confirmed by the alerts service.",
		}),
	}
	reg.MustRegister(m.created, m.destroyed, m.statuses, m.triggers, m.transmits, m.cancels)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) AlertCreated(*alert.Alert)   { m.created.Inc() }
func (m *Metrics) AlertDestroyed(*alert.Alert) { m.destroyed.Inc() }
func (m *Metrics) DidTransmit(*alert.Alert)    { m.transmits.WithLabelValues("ok").Inc() }
func (m *Metrics) DidCancel(*alert.Alert)      { m.cancels.Inc() }

func (m *Metrics) DidTransmitError(*alert.Alert, error) { m.transmits.WithLabelValues("error").Inc() }

func (m *Metrics) AlertUpdated(a *alert.Alert, f alert.Field) {
	if f == alert.FieldStatus {
		m.statuses.WithLabelValues(string(a.Status())).Inc()
	}
}

func (m *Metrics) AlertTriggered(a *alert.Alert, _ model.TriggerEvent) {
	exchange := "unknown"
	if mk := a.Market(); mk != nil {
		exchange = mk.Exchange.ID
	}
	m.triggers.WithLabelValues(exchange).Inc()
}
