package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegistryCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveOperation("claim_scholarship", "ok")
	m.ObserveOperation("claim_scholarship", "ok")
	m.ObserveOperation("claim_scholarship", "already_claimed")
	m.ObservePayout("dispatched")
	m.SetPendingPayouts(4)

	require.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("claim_scholarship", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("claim_scholarship", "already_claimed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.payouts.WithLabelValues("dispatched")))
	require.Equal(t, 4.0, testutil.ToFloat64(m.pending))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 3)
}

func TestNilRegistryIsNoop(t *testing.T) {
	var m *Registry
	m.ObserveOperation("x", "ok")
	m.ObservePayout("failed")
	m.SetPendingPayouts(1)
}
