// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

// Package loki provides a best-effort background agent shipping log lines to a Grafana Loki
// push endpoint. Producers enqueue lines without blocking while a single scheduler goroutine
// periodically drains, batches and pushes them.
package loki

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/z"
)

// LogFunc abstracts logging of the agent's own diagnostics to prevent import cycles with the logger.
type LogFunc func(msg string, err error)

type options struct {
	clock     clockwork.Clock
	transport Transport
	logFunc   LogFunc
}

func defaultOptions(conf Config) options {
	return options{
		clock:     clockwork.NewRealClock(),
		transport: newHTTPTransport(conf.Timeout),
		logFunc:   func(string, error) {},
	}
}

// Option overrides a default agent dependency.
type Option func(*options)

// WithClock returns an option overriding the clock used for timestamps and the flush cadence.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithTransport returns an option overriding the HTTP transport.
func WithTransport(transport Transport) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithLogFunc returns an option setting the sink of the agent's own diagnostics.
func WithLogFunc(logFunc LogFunc) Option {
	return func(o *options) {
		o.logFunc = logFunc
	}
}

// New returns a new agent. It doesn't start shipping until Start or Run is called.
func New(conf Config, opts ...Option) (*Agent, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions(conf)
	for _, opt := range opts {
		opt(&o)
	}

	deliverer, err := newDeliverer(conf, o)
	if err != nil {
		return nil, err
	}

	buffer := NewLineBuffer(conf.MaxBufferedEntries)

	return &Agent{
		clock:  o.clock,
		buffer: buffer,
		sched: &scheduler{
			buffer:    buffer,
			deliverer: deliverer,
			defaults:  mergeLabels(conf.Labels, nil),
			period:    conf.FlushPeriod,
			retries:   conf.Retries,
			clock:     o.clock,
			logFunc:   o.logFunc,
			quit:      make(chan struct{}),
			done:      make(chan struct{}),
		},
	}, nil
}

// Agent ships log lines to Loki in the background.
type Agent struct {
	clock  clockwork.Clock
	buffer *LineBuffer
	sched  *scheduler

	started  atomic.Bool
	stopping atomic.Bool
}

// Write enqueues the line for shipping. Multi-line input is split into one entry per
// non-empty line, each stamped with the current time. The labels are added to the
// default labels of each entry. It never blocks.
// Lines written after Stop was called or with invalid labels are dropped.
func (a *Agent) Write(line string, labels map[string]string) {
	segments := strings.Split(line, "\n")

	if a.stopping.Load() {
		droppedCounter.WithLabelValues(reasonStopped).Add(float64(countLines(segments)))
		return
	}

	if err := ValidateLabels(labels); err != nil {
		// Loki rejects the whole batch if a single stream is invalid.
		if count := countLines(segments); count > 0 {
			droppedCounter.WithLabelValues(reasonInvalidLabels).Add(float64(count))
			a.sched.logFunc("Dropped log lines with invalid labels", errors.Wrap(err, "write", z.Int("lines", count)))
		}

		return
	}

	if len(labels) == 0 {
		labels = nil
	} else {
		labels = mergeLabels(labels, nil)
	}

	for _, segment := range segments {
		segment = strings.TrimSuffix(segment, "\r")
		if segment == "" {
			continue
		}

		entry := Entry{
			Line:      segment,
			Timestamp: a.clock.Now().UnixNano(),
			Labels:    labels,
		}

		if !a.buffer.Push(entry) {
			droppedCounter.WithLabelValues(reasonBufferFull).Inc()
			continue
		}

		enqueuedCounter.Inc()
	}
}

// countLines returns the number of non-empty segments.
func countLines(segments []string) int {
	var count int
	for _, segment := range segments {
		if strings.TrimSuffix(segment, "\r") != "" {
			count++
		}
	}

	return count
}

// Start runs the agent in a background goroutine. It is idempotent.
func (a *Agent) Start() {
	if !a.started.CompareAndSwap(false, true) {
		return
	}

	go a.sched.run()
}

// Run blocks shipping log lines until Stop is called and the final flush completed.
// Only the first call runs the agent, subsequent calls block until it stopped.
func (a *Agent) Run() {
	if !a.started.CompareAndSwap(false, true) {
		<-a.sched.done
		return
	}

	a.sched.run()
}

// Stop requests shutdown and blocks until the buffered lines were flushed or the context is done.
// An agent that was never started is started now, so its buffered lines get the single final flush.
func (a *Agent) Stop(ctx context.Context) error {
	if a.stopping.CompareAndSwap(false, true) {
		close(a.sched.quit)
	}

	// With quit closed, the loop flushes once and returns.
	a.Start()

	select {
	case <-a.sched.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready returns true if the agent is running and the last push did not fail.
func (a *Agent) Ready() bool {
	if !a.started.Load() || a.stopping.Load() {
		return false
	}

	return !a.sched.lastFailed.Load()
}
