package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NotNil(t, m)

	m.SetCommandsInflight(3)
	m.IncCommandsTotal("done")
	m.SetFPSStatusBit("locked", true)
	m.SetPositionersConnected(42)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["jaeger_commands_inflight"])
	assert.True(t, names["jaeger_commands_total"])
	assert.True(t, names["jaeger_fps_status"])
	assert.True(t, names["jaeger_positioners_connected"])
}

func TestNewMetricsWithNilRegistererSkipsRegistration(t *testing.T) {
	m := NewMetrics(nil)
	require.NotNil(t, m)
	assert.False(t, m.registered)

	// Still usable directly even though unregistered.
	assert.NotPanics(t, func() {
		m.SetCommandsInflight(1)
		m.IncCommandsTotal("failed")
	})
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SetCommandsInflight(1)
		m.IncCommandsTotal("timed_out")
		m.SetFPSStatusBit("moving", true)
		m.SetPositionersConnected(0)
	})
}

func TestDescribeAndCollectAreNoOpWhenUnregistered(t *testing.T) {
	m := NewMetrics(nil)
	descCh := make(chan *prometheus.Desc, 10)
	m.Describe(descCh)
	close(descCh)
	assert.Empty(t, descCh)

	metricCh := make(chan prometheus.Metric, 10)
	m.Collect(metricCh)
	close(metricCh)
	assert.Empty(t, metricCh)
}
