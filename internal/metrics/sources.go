package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/market-alerts/internal/alert"
	"github.com/rickgao/market-alerts/internal/connection"
	"github.com/rickgao/market-alerts/internal/market"
	"github.com/rickgao/market-alerts/internal/router"
	"github.com/rickgao/market-alerts/internal/writer"
)

// Sources are the Stats funcs of running components. Nil entries are
// skipped. Each func must be safe to call from the scrape goroutine.
type Sources struct {
	Alerts  func() alert.Stats
	Markets func() market.Stats
	Stream  func() connection.SupervisorStats
	Router  func() router.RouterStats
	Writer  func() writer.Metrics
}

// Register adds gauges and counters that read from src at scrape time.
func (m *Metrics) Register(src Sources) {
	var cs []prometheus.Collector

	if f := src.Alerts; f != nil {
		cs = append(cs,
			gauge("tracked", "Alerts tracked by the manager.", func() float64 { return float64(f().Alerts) }),
			gauge("backlog", "Descriptors waiting for their market.", func() float64 { return float64(f().Backlog) }),
		)
	}

	if f := src.Markets; f != nil {
		cs = append(cs,
			gauge("markets", "Markets in the local catalog.", func() float64 { return float64(f().Markets) }),
			gauge("markets_active", "Active markets in the local catalog.", func() float64 { return float64(f().Active) }),
			counter("market_changes_dropped_total", "Market change notifications dropped on a full channel.", func() float64 { return float64(f().Dropped) }),
		)
	}

	if f := src.Stream; f != nil {
		cs = append(cs,
			gauge("stream_connected", "1 when the stream is connected.", func() float64 {
				if f().Connected {
					return 1
				}
				return 0
			}),
			counter("stream_connects_total", "Successful stream connects.", func() float64 { return float64(f().Connects) }),
			counter("stream_connect_errors_total", "Failed stream connect attempts.", func() float64 { return float64(f().ConnectErrors) }),
			counter("stream_disconnects_total", "Stream disconnects.", func() float64 { return float64(f().Disconnects) }),
			counter("stream_messages_total", "Frames read from the stream.", func() float64 { return float64(f().Messages) }),
		)
	}

	if f := src.Router; f != nil {
		cs = append(cs,
			counter("router_dispatched_total", "Messages handed to the alert loop.", func() float64 { return float64(f().MessagesDispatched) }),
			counter("router_parse_errors_total", "Frames that failed to decode.", func() float64 { return float64(f().ParseErrors) }),
			counter("router_unknown_actions_total", "Messages with an unknown action.", func() float64 { return float64(f().UnknownActions) }),
			gauge("router_queue_depth", "Messages waiting for the alert loop.", func() float64 { return float64(f().Queue.Count) }),
		)
	}

	if f := src.Writer; f != nil {
		cs = append(cs,
			counter("writer_inserts_total", "Trigger rows written.", func() float64 { return float64(f().Inserts) }),
			counter("writer_conflicts_total", "Trigger rows skipped as duplicates.", func() float64 { return float64(f().Conflicts) }),
			counter("writer_errors_total", "Failed trigger batch writes.", func() float64 { return float64(f().Errors) }),
		)
	}

	m.registry.MustRegister(cs...)
}

func gauge(name, help string, fn func() float64) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, fn)
}

func counter(name, help string, fn func() float64) prometheus.Collector {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, fn)
}
