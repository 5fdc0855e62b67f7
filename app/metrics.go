// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nethergamesmc/lokilogger/app/promauto"
	"github.com/nethergamesmc/lokilogger/app/version"
)

var (
	versionGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lokilogger",
		Subsystem: "app",
		Name:      "version",
		Help:      "Constant gauge with label set to current app version",
	}, []string{"version"})

	startGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lokilogger",
		Subsystem: "app",
		Name:      "start_time_secs",
		Help:      "Gauge set to the app start time of the binary in unix seconds",
	})

	inputLinesCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lokilogger",
		Subsystem: "input",
		Name:      "lines_total",
		Help:      "Total number of lines read from the input",
	})
)

func initStartupMetrics() {
	versionGauge.WithLabelValues(version.Version).Set(1)
	startGauge.SetToCurrentTime()
}
