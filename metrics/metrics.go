// Package metrics exposes Prometheus instrumentation for the execution
// path. All recording methods are safe on a nil receiver so callers can run
// without metrics wired.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Metrics bundles the execution collectors. Build with New and register the
// returned set once per process.
type Metrics struct {
	ticks           *prometheus.CounterVec
	signals         *prometheus.CounterVec
	ordersSubmitted *prometheus.CounterVec
	ordersRejected  *prometheus.CounterVec
	venueErrors     *prometheus.CounterVec
	equity          *prometheus.GaugeVec
	killSwitch      *prometheus.GaugeVec
}

// New builds the collector set and registers it with the given registerer.
// A nil registerer uses the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Name:      "ticks_total",
			Help:      "Market data ticks processed per trader.",
		}, []string{"trader"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Name:      "signals_total",
			Help:      "Strategy signals by type.",
		}, []string{"trader", "type"}),
		ordersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Name:      "orders_submitted_total",
			Help:      "Orders accepted by the venue.",
		}, []string{"trader"}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Name:      "orders_rejected_total",
			Help:      "Signals rejected by the risk manager.",
		}, []string{"trader"}),
		venueErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Name:      "venue_errors_total",
			Help:      "Venue call failures.",
		}, []string{"trader"}),
		equity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "trading",
			Name:      "equity",
			Help:      "Current account equity per trader.",
		}, []string{"trader"}),
		killSwitch: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "trading",
			Name:      "kill_switch",
			Help:      "1 when the risk kill switch has tripped.",
		}, []string{"trader"}),
	}
	reg.MustRegister(m.ticks, m.signals, m.ordersSubmitted, m.ordersRejected,
		m.venueErrors, m.equity, m.killSwitch)
	return m
}

func (m *Metrics) Tick(trader string) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(trader).Inc()
}

func (m *Metrics) Signal(trader, signalType string) {
	if m == nil {
		return
	}
	m.signals.WithLabelValues(trader, signalType).Inc()
}

func (m *Metrics) OrderSubmitted(trader string) {
	if m == nil {
		return
	}
	m.ordersSubmitted.WithLabelValues(trader).Inc()
}

func (m *Metrics) OrderRejected(trader string) {
	if m == nil {
		return
	}
	m.ordersRejected.WithLabelValues(trader).Inc()
}

func (m *Metrics) VenueError(trader string) {
	if m == nil {
		return
	}
	m.venueErrors.WithLabelValues(trader).Inc()
}

func (m *Metrics) Equity(trader string, equity decimal.Decimal) {
	if m == nil {
		return
	}
	f, _ := equity.Float64()
	m.equity.WithLabelValues(trader).Set(f)
}

func (m *Metrics) KillSwitch(trader string, killed bool) {
	if m == nil {
		return
	}
	v := 0.0
	if killed {
		v = 1.0
	}
	m.killSwitch.WithLabelValues(trader).Set(v)
}
