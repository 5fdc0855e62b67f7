// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package loki

import (
	"context"
	"net/http"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()

	var m dto.Metric
	require.NoError(t, counter.Write(&m))

	return m.GetCounter().GetValue()
}

func TestDropMetrics(t *testing.T) {
	conf := DefaultConfig()
	conf.Endpoint = "http://loki:3100"
	conf.MaxBufferedEntries = 2

	a, err := New(conf, WithTransport(newPushes(http.StatusNoContent)), WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)

	enqueued := counterValue(t, enqueuedCounter)
	full := counterValue(t, droppedCounter.WithLabelValues(reasonBufferFull))
	stopped := counterValue(t, droppedCounter.WithLabelValues(reasonStopped))
	invalid := counterValue(t, droppedCounter.WithLabelValues(reasonInvalidLabels))

	a.Write("x\ny", map[string]string{"0invalid": "v"})
	require.InDelta(t, invalid+2, counterValue(t, droppedCounter.WithLabelValues(reasonInvalidLabels)), 0)

	a.Write("a\nb\nc", nil)

	require.InDelta(t, enqueued+2, counterValue(t, enqueuedCounter), 0)
	require.InDelta(t, full+1, counterValue(t, droppedCounter.WithLabelValues(reasonBufferFull)), 0)

	require.NoError(t, a.Stop(context.Background()))
	a.Write("d\n\ne", nil)

	require.InDelta(t, stopped+2, counterValue(t, droppedCounter.WithLabelValues(reasonStopped)), 0)
	require.InDelta(t, enqueued+2, counterValue(t, enqueuedCounter), 0)
}

func TestDeliveryMetrics(t *testing.T) {
	a := newTestAgent(t, newPushes(http.StatusServiceUnavailable), clockwork.NewFakeClock(), nil)

	attempts := counterValue(t, attemptCounter.WithLabelValues("status"))
	dropped := counterValue(t, droppedCounter.WithLabelValues(reasonDelivery))

	a.Write("a", nil)
	a.sched.flush()

	// One retry by default.
	require.InDelta(t, attempts+2, counterValue(t, attemptCounter.WithLabelValues("status")), 0)
	require.InDelta(t, dropped+1, counterValue(t, droppedCounter.WithLabelValues(reasonDelivery)), 0)
}
