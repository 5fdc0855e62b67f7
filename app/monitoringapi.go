// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package app

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nethergamesmc/lokilogger/app/lifecycle"
)

// readyChecker is implemented by the agent.
type readyChecker interface {
	Ready() bool
}

// wireMonitoringAPI constructs the monitoring API and registers it with the life cycle manager.
// It serves Prometheus metrics and liveness and readiness endpoints.
func wireMonitoringAPI(life *lifecycle.Manager, addr string, registry *prometheus.Registry, agent readyChecker) {
	if addr == "" {
		return
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           newMonitoringRouter(registry, agent),
		ReadHeaderTimeout: time.Second,
	}

	life.RegisterStart(lifecycle.AsyncBackground, lifecycle.StartMonitoringAPI, httpServeHook(server.ListenAndServe))
	life.RegisterStop(lifecycle.StopMonitoringAPI, lifecycle.HookFunc(server.Shutdown))
}

func newMonitoringRouter(registry *prometheus.Registry, agent readyChecker) *mux.Router {
	router := mux.NewRouter()

	router.Handle("/metrics", promhttp.InstrumentMetricHandler(
		registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)).Methods(http.MethodGet)

	router.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		writeResponse(w, http.StatusOK, "ok")
	}).Methods(http.MethodGet)

	router.HandleFunc("/readyz", newReadyHandler(agent)).Methods(http.MethodGet)

	return router
}

// newReadyHandler returns a http.HandlerFunc which returns 200 when the agent is running
// and the last push succeeded. Returns 503 otherwise.
func newReadyHandler(agent readyChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if !agent.Ready() {
			writeResponse(w, http.StatusServiceUnavailable, "Agent not running or last push failed")
			return
		}

		writeResponse(w, http.StatusOK, "ok")
	}
}

func writeResponse(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
