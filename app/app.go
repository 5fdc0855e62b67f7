// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

// Package app provides the top app-level abstraction and entrypoint of a lokilogger process.
// The sub-packages also provide app-level functionality.
package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/lifecycle"
	"github.com/nethergamesmc/lokilogger/app/log"
	"github.com/nethergamesmc/lokilogger/app/loki"
	"github.com/nethergamesmc/lokilogger/app/promauto"
	"github.com/nethergamesmc/lokilogger/app/version"
	"github.com/nethergamesmc/lokilogger/app/z"
)

// stopSlack is added to the worst case final flush duration to bound graceful shutdown.
const stopSlack = 5 * time.Second

type Config struct {
	Log            log.Config
	Loki           loki.Config
	Input          string            // Path of the input to ship, "-" for stdin, empty disables it.
	InputLabels    map[string]string // Extra labels of lines read from the input.
	MonitoringAddr string

	// Handle is optional and set to the agent once constructed.
	Handle *loki.Handle

	TestConfig TestConfig
}

// TestConfig defines additional test-only config.
type TestConfig struct {
	// Transport overrides the agent's HTTP transport.
	Transport loki.Transport
	// InputReader provides the input explicitly, skips opening Input.
	InputReader io.ReadCloser
}

// Run is the entrypoint for running a lokilogger process.
// All processes and their dependencies are wired and added
// to the life cycle manager which handles starting and graceful shutdown.
// It returns once the context is closed or the input is exhausted and
// the buffered lines were flushed.
func Run(ctx context.Context, conf Config) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctx = log.WithTopic(ctx, "app-start")
	defer func() {
		if err != nil {
			log.Error(ctx, "Fatal run error", err)
		}
	}()

	_, _ = maxprocs.Set()

	// Logs are only shipped once the agent exists.
	localLog := conf.Log
	localLog.Ship = false
	if err := log.InitLogger(localLog); err != nil {
		return err
	}

	agent, err := newAgent(conf)
	if err != nil {
		return err
	}

	if conf.Log.Ship {
		if err := log.InitLogger(conf.Log, log.WithAgent(agent)); err != nil {
			return err
		}
	}

	if conf.Handle != nil {
		if err := conf.Handle.Set(agent); err != nil {
			return err
		}
	}

	version.LogInfo(ctx, "Lokilogger starting")
	log.Info(ctx, "Loki agent configured",
		z.Labels("labels", conf.Loki.Labels),
		z.Dur("flush_period", conf.Loki.FlushPeriod),
		z.Int("retries", conf.Loki.Retries),
		z.Bool("ship_logs", conf.Log.Ship),
	)

	promRegistry, err := promauto.NewRegistry(metricLabels(conf.Loki.Labels))
	if err != nil {
		return err
	}

	initStartupMetrics()

	// Wire processes and their dependencies
	life := &lifecycle.Manager{StopTimeout: stopTimeout(conf.Loki)}

	life.RegisterStart(lifecycle.SyncBackground, lifecycle.StartAgent, lifecycle.HookFuncMin(agent.Start))
	life.RegisterStop(lifecycle.StopAgent, lifecycle.HookFunc(agent.Stop))

	wireMonitoringAPI(life, conf.MonitoringAddr, promRegistry, agent)

	if err := wireInput(life, conf, agent, cancel); err != nil {
		return err
	}

	// Run life cycle manager
	return life.Run(ctx)
}

// newAgent returns a new agent reporting its own diagnostics as warnings,
// each diagnostic at most once per flush period.
func newAgent(conf Config) (*loki.Agent, error) {
	ctx := log.WithTopic(context.Background(), log.AgentTopic)
	filters := log.Filters(log.WithFilterPeriod(conf.Loki.FlushPeriod))

	opts := []loki.Option{
		loki.WithLogFunc(func(msg string, err error) {
			log.Warn(ctx, msg, err, filters(msg))
		}),
	}
	if conf.TestConfig.Transport != nil {
		opts = append(opts, loki.WithTransport(conf.TestConfig.Transport))
	}

	agent, err := loki.New(conf.Loki, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "new loki agent")
	}

	return agent, nil
}

// wireInput wires the input source if configured. It calls done once the input is exhausted.
func wireInput(life *lifecycle.Manager, conf Config, agent lineWriter, done func()) error {
	reader := conf.TestConfig.InputReader
	if reader == nil {
		if conf.Input == "" {
			return nil
		}

		var err error
		reader, err = openInput(conf.Input)
		if err != nil {
			return err
		}
	}

	if err := loki.ValidateLabels(conf.InputLabels); err != nil {
		return errors.Wrap(err, "input labels")
	}

	source := newInputSource(reader, agent, conf.InputLabels, done)

	life.RegisterStart(lifecycle.AsyncAppCtx, lifecycle.StartInput, lifecycle.HookFunc(source.Run))
	life.RegisterStop(lifecycle.StopInput, lifecycle.HookFuncErr(source.Close))

	return nil
}

// metricLabels returns the runtime metric labels from the agent's default labels.
func metricLabels(labels map[string]string) prometheus.Labels {
	resp := make(prometheus.Labels)
	for _, key := range []string{"service", "job"} {
		if value, ok := labels[key]; ok {
			resp[key] = value
		}
	}

	return resp
}

// stopTimeout returns the graceful shutdown timeout allowing for an in-flight
// and a final push, each exhausting its retries.
func stopTimeout(conf loki.Config) time.Duration {
	push := conf.Timeout * time.Duration(conf.Retries+1)
	if conf.RetryBackoff.Enabled() {
		push += conf.RetryBackoff.MaxDelay * time.Duration(conf.Retries)
	}

	return 2*push + stopSlack
}

// httpServeHook wraps a http.Server.ListenAndServe function, swallowing http.ErrServerClosed.
type httpServeHook func() error

func (h httpServeHook) Call(context.Context) error {
	err := h()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	} else if err != nil {
		return errors.Wrap(err, "serve")
	}

	return nil
}
