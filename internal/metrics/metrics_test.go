package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncTransition("expired")
	m.IncTransition("expired")
	m.IncNotification("email", true)
	m.IncNotification("push", false)
	m.ObserveSweep("reminders", 3, 20*time.Millisecond)
	m.IncWebhook("charge.success", "processed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("email", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("push", "false")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweepItems.WithLabelValues("reminders")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhooks.WithLabelValues("charge.success", "processed")))
}

func TestTrackGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TrackGauge("websocket_clients", "Connected websocket clients", func() float64 { return 4 })

	count, err := testutil.GatherAndCount(reg, "websocket_clients")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
