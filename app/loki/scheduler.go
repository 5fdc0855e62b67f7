// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package loki

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/z"
)

// scheduler is the single consumer of the line buffer. It flushes the buffer
// at most every period and immediately after entries are pushed.
type scheduler struct {
	buffer    *LineBuffer
	deliverer *Deliverer
	defaults  map[string]string
	period    time.Duration
	retries   int
	clock     clockwork.Clock
	logFunc   LogFunc

	quit chan struct{} // Closed to request the final flush.
	done chan struct{} // Closed once the final flush completed.

	lastFailed atomic.Bool
}

// run blocks flushing the buffer until quit is closed, then flushes one last time
// and closes done.
func (s *scheduler) run() {
	defer close(s.done)

	for {
		start := s.clock.Now()
		s.flush()

		select {
		case <-s.quit:
			s.flush()
			return
		default:
		}

		elapsed := s.clock.Since(start)
		if elapsed >= s.period {
			continue
		}

		if s.buffer.WaitForSignal(s.clock, s.period-elapsed, s.quit) == WakeStop {
			s.flush()
			return
		}
	}
}

// flush drains the buffer and delivers the entries, if any. Delivery failures
// are reported via logFunc and otherwise ignored.
func (s *scheduler) flush() {
	entries := s.buffer.DrainAll()
	bufferGauge.Set(float64(s.buffer.Len()))

	req, ok := Build(s.defaults, entries)
	if !ok {
		return
	}

	// Stop never interrupts an in-flight push, only the push timeout bounds it.
	out := s.deliverer.Deliver(context.Background(), req, s.retries)
	s.lastFailed.Store(!out.Delivered)
	if out.Delivered {
		return
	}

	fields := []z.Field{
		z.Int("entries", len(entries)),
		z.Int("attempts", out.Attempts),
	}

	err := out.Err
	if err == nil {
		err = errors.New("loki push failed", fields...)
	} else {
		err = errors.Wrap(err, "loki push failed", fields...)
	}

	s.logFunc("Dropped log batch", err)
}
