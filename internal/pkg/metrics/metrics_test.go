package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	m := NewWithRegistry(reg)

	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.ReservationsTotal)
	assert.NotNil(t, m.DecrementAttempts)
	assert.NotNil(t, m.SeatsReservedTotal)

	// 登録済みメトリクスが収集できる
	m.ReservationsTotal.WithLabelValues("success").Inc()
	m.SeatsReservedTotal.Add(2)
	m.DecrementAttempts.Observe(1)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["reservations_total"])
	assert.True(t, names["seats_reserved_total"])
	assert.True(t, names["seat_decrement_attempts"])
}

func TestNewWithRegistry_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewWithRegistry(reg)

	assert.Panics(t, func() {
		NewWithRegistry(reg)
	})
}
