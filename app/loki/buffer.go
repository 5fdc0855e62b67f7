// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package loki

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Entry is a single log line waiting to be pushed.
type Entry struct {
	// Line is the log line, it never contains a newline.
	Line string
	// Timestamp is the unix nanosecond timestamp at enqueue time.
	Timestamp int64
	// Labels are the extra stream labels of the entry, possibly empty.
	Labels map[string]string
}

// WakeReason is the reason WaitForSignal returned.
type WakeReason int

const (
	// WakeSignal indicates that an entry was pushed.
	WakeSignal WakeReason = iota + 1
	// WakeTimeout indicates that the max wait duration elapsed.
	WakeTimeout
	// WakeStop indicates that the stop channel was closed.
	WakeStop
)

// NewLineBuffer returns a new line buffer. A zero max means unbounded.
func NewLineBuffer(maxEntries int) *LineBuffer {
	return &LineBuffer{
		max:    maxEntries,
		signal: make(chan struct{}, 1),
	}
}

// LineBuffer is a multi-producer single-consumer FIFO queue of entries.
// Push may be called concurrently from any goroutine, while DrainAll and
// WaitForSignal must only be called by the single consumer.
type LineBuffer struct {
	max    int
	signal chan struct{}

	mu      sync.Mutex
	entries []Entry
}

// Push appends the entry to the tail of the buffer and wakes the consumer.
// It never blocks. It returns false if the entry was dropped since the buffer is full.
func (b *LineBuffer) Push(entry Entry) bool {
	b.mu.Lock()
	if b.max > 0 && len(b.entries) >= b.max {
		b.mu.Unlock()
		return false
	}
	b.entries = append(b.entries, entry)

	// Coalesce signals, a pending signal already wakes the consumer.
	select {
	case b.signal <- struct{}{}:
	default:
	}
	b.mu.Unlock()

	return true
}

// DrainAll removes and returns all queued entries in insertion order.
// It also consumes the pending signal of the drained entries, so the next
// WaitForSignal only wakes early for entries pushed after the drain.
func (b *LineBuffer) DrainAll() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.signal:
	default:
	}

	entries := b.entries
	b.entries = nil

	return entries
}

// Len returns the number of queued entries.
func (b *LineBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.entries)
}

// WaitForSignal blocks until an entry is pushed, maxWait elapses or stop is closed, whichever is first.
// A push that happened since the previous wait returns immediately.
func (b *LineBuffer) WaitForSignal(clock clockwork.Clock, maxWait time.Duration, stop <-chan struct{}) WakeReason {
	timer := clock.NewTimer(maxWait)
	defer timer.Stop()

	select {
	case <-stop:
		return WakeStop
	case <-b.signal:
		return WakeSignal
	case <-timer.Chan():
		return WakeTimeout
	}
}
