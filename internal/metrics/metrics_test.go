package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	c := New("")
	reg := prometheus.NewRegistry()
	require.NoError(t, c.Register(reg))
	require.NoError(t, c.Register(reg))
}

func TestRegisterUsesDefaultNamespace(t *testing.T) {
	c := New("")
	reg := prometheus.NewRegistry()
	require.NoError(t, c.Register(reg))

	metric := &prometheus.CounterVec{}
	_ = metric
	c.RestartsTotal.WithLabelValues("memory").Inc()

	mf, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, fam := range mf {
		if fam.GetName() == "svcguard_manager_restarts_total" {
			found = true
		}
	}
	require.True(t, found)
}

func TestNewMonitorReadsSelfProcess(t *testing.T) {
	m, err := NewMonitor()
	require.NoError(t, err)

	bytes, err := m.MemoryBytes()
	require.NoError(t, err)
	require.Greater(t, bytes, uint64(0))

	threads, err := m.ThreadCount()
	require.NoError(t, err)
	require.Greater(t, threads, int32(0))
}
