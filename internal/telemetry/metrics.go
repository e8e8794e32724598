package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the Prometheus collectors wired into the CAN dispatcher
// and FPS aggregate (SPEC_FULL.md §4.8). A nil *Metrics is valid and every
// method is a no-op on it, so the core has no mandatory dependency on a
// running metrics server.
type Metrics struct {
	commandsInflight prometheus.Gauge
	commandsTotal    *prometheus.CounterVec
	fpsStatus        *prometheus.GaugeVec
	positionersUp    prometheus.Gauge

	registered bool
}

// NewMetrics builds the collectors and registers them with reg if non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commandsInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jaeger",
			Subsystem: "commands",
			Name:      "inflight",
			Help:      "Number of CAN commands currently awaiting completion.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jaeger",
			Subsystem: "commands",
			Name:      "total",
			Help:      "Total CAN commands by terminal status.",
		}, []string{"status"}),
		fpsStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "jaeger",
			Subsystem: "fps",
			Name:      "status",
			Help:      "FPSStatus bit set on the fleet, one gauge per named bit (1 if set).",
		}, []string{"bit"}),
		positionersUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jaeger",
			Subsystem: "positioners",
			Name:      "connected",
			Help:      "Number of positioners currently connected and responding.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.commandsInflight, m.commandsTotal, m.fpsStatus, m.positionersUp)
		m.registered = true
	}
	return m
}

// SetCommandsInflight sets jaeger_commands_inflight.
func (m *Metrics) SetCommandsInflight(n int) {
	if m == nil {
		return
	}
	m.commandsInflight.Set(float64(n))
}

// IncCommandsTotal increments jaeger_commands_total for a terminal status
// (one of Status.String()'s values).
func (m *Metrics) IncCommandsTotal(status string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(status).Inc()
}

// SetFPSStatusBit sets or clears the gauge for one named FPSStatus bit.
func (m *Metrics) SetFPSStatusBit(bit string, set bool) {
	if m == nil {
		return
	}
	v := 0.0
	if set {
		v = 1.0
	}
	m.fpsStatus.WithLabelValues(bit).Set(v)
}

// SetPositionersConnected sets jaeger_positioners_connected.
func (m *Metrics) SetPositionersConnected(n int) {
	if m == nil {
		return
	}
	m.positionersUp.Set(float64(n))
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	if m == nil || !m.registered {
		return
	}
	ch <- m.commandsInflight.Desc()
	m.commandsTotal.Describe(ch)
	m.fpsStatus.Describe(ch)
	ch <- m.positionersUp.Desc()
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	if m == nil || !m.registered {
		return
	}
	ch <- m.commandsInflight
	m.commandsTotal.Collect(ch)
	m.fpsStatus.Collect(ch)
	ch <- m.positionersUp
}
