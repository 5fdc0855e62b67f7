// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package log

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/nethergamesmc/lokilogger/app/z"
)

// keySuppressed is the field carrying the number of logs a filter dropped since its last log.
const keySuppressed = "suppressed"

type FilterOption func(*filter)

// WithFilterRateLimit returns a filter option that rate limits logging by a per second limit.
func WithFilterRateLimit(limit rate.Limit) FilterOption {
	return func(f *filter) {
		f.limit = limit
	}
}

// WithFilterPeriod returns a filter option allowing at most one log per period,
// e.g. the agent's flush period so its diagnostics are logged at most once per flush.
func WithFilterPeriod(period time.Duration) FilterOption {
	return func(f *filter) {
		f.limit = rate.Every(period)
	}
}

type filter struct {
	limit rate.Limit
}

// defaultFilter returns the default filter with a period of 1 minute.
func defaultFilter() filter {
	return filter{limit: rate.Every(time.Minute)}
}

// Filter returns a stateful structure logging field that results in
// logs lines being dropped if internal rate limit is exceeded.
// The next log passing the filter includes the number of dropped logs as "suppressed".
// Usage:
//
//	filter := log.Filter()
//	for event := range eventPipe() {
//	  err := process(event)
//	  if err != nil {
//	    log.Error(ctx, "This error should only be logged max once an minute", err, filter)
//	  }
//	}
func Filter(opts ...FilterOption) z.Field {
	f := defaultFilter()
	for _, opt := range opts {
		opt(&f)
	}

	var (
		limiter    = rate.NewLimiter(f.limit, 1)
		suppressed atomic.Int64
	)

	return func(add func(zap.Field)) {
		if !limiter.Allow() {
			suppressed.Add(1)
			add(zap.Field{Type: filterFieldType})

			return
		}

		if n := suppressed.Swap(0); n > 0 {
			add(zap.Int64(keySuppressed, n))
		}
	}
}

// Filters returns a function providing an independent filter per key, all with the same options.
// Keying by message keeps a noisy diagnostic from hiding a different one.
func Filters(opts ...FilterOption) func(key string) z.Field {
	var (
		mu      sync.Mutex
		filters = make(map[string]z.Field)
	)

	return func(key string) z.Field {
		mu.Lock()
		defer mu.Unlock()

		f, ok := filters[key]
		if !ok {
			f = Filter(opts...)
			filters[key] = f
		}

		return f
	}
}

// filterFieldType is a custom zap field type that indicates the whole log should be filtered (dropped).
var filterFieldType = zapcore.FieldType(math.MaxUint8)
