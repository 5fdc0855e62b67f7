// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package loki

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nethergamesmc/lokilogger/app/promauto"
)

// Drop reasons.
const (
	reasonBufferFull = "buffer_full"
	reasonStopped    = "stopped"
	reasonEncode     = "encode"
	reasonDelivery   = "delivery"

	reasonInvalidLabels = "invalid_labels"
)

var (
	enqueuedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lokilogger",
		Subsystem: "agent",
		Name:      "entries_enqueued_total",
		Help:      "Total number of log entries enqueued for pushing",
	})

	droppedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lokilogger",
		Subsystem: "agent",
		Name:      "entries_dropped_total",
		Help:      "Total number of log entries dropped by reason",
	}, []string{"reason"})

	deliveredCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lokilogger",
		Subsystem: "agent",
		Name:      "entries_delivered_total",
		Help:      "Total number of log entries successfully pushed",
	})

	attemptCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lokilogger",
		Subsystem: "agent",
		Name:      "push_attempts_total",
		Help:      "Total number of push attempts by result (success, status, transport)",
	}, []string{"result"})

	pushLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lokilogger",
		Subsystem: "agent",
		Name:      "push_latency_seconds",
		Help:      "Latency of a single push attempt in seconds",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	bufferGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lokilogger",
		Subsystem: "agent",
		Name:      "buffered_entries",
		Help:      "Number of log entries remaining in the buffer after the last drain",
	})
)
