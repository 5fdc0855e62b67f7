// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package log

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nethergamesmc/lokilogger/app/promauto"
)

var (
	errorCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lokilogger",
		Subsystem: "log",
		Name:      "error_total",
		Help:      "Total count of logged errors by topic",
	}, []string{"topic"})

	warnCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lokilogger",
		Subsystem: "log",
		Name:      "warn_total",
		Help:      "Total count of logged warnings by topic",
	}, []string{"topic"})
)

func incWarnCounter(ctx context.Context) {
	warnCounter.WithLabelValues(metricsTopicFromCtx(ctx)).Inc()
}

func incErrorCounter(ctx context.Context) {
	errorCounter.WithLabelValues(metricsTopicFromCtx(ctx)).Inc()
}
