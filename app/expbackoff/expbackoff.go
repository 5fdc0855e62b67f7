// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

// Package expbackoff implements exponential backoff between push retries.
// The backoff algorithm was copied from google.golang.org/grpc.
package expbackoff

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// Config defines the configuration options for backoff.
// The zero value disables backoff, retries are then attempted immediately.
type Config struct {
	// BaseDelay is the amount of time to backoff after the first failure.
	BaseDelay time.Duration
	// Multiplier is the factor with which to multiply backoffs after a
	// failed retry. Should ideally be greater than 1.
	Multiplier float64
	// Jitter is the factor with which backoffs are randomized.
	Jitter float64
	// MaxDelay is the upper bound of backoff delay.
	MaxDelay time.Duration
}

// Enabled returns true if the config results in non-zero backoff delays.
func (c Config) Enabled() bool {
	return c.BaseDelay > 0
}

// FastConfig is a common configuration for fast backoff. A log push that
// is retried later than a couple of seconds is usually not worth retrying.
var FastConfig = Config{
	BaseDelay:  100 * time.Millisecond,
	Multiplier: 1.6,
	Jitter:     0.2,
	MaxDelay:   5 * time.Second,
}

// WithBaseDelay returns a copy of FastConfig with the provided base delay.
// A zero delay returns the disabled zero config.
func WithBaseDelay(d time.Duration) Config {
	if d <= 0 {
		return Config{}
	}

	conf := FastConfig
	conf.BaseDelay = d
	if conf.MaxDelay < d {
		conf.MaxDelay = d
	}

	return conf
}

// Sleep blocks for the backoff duration of the given number of retries using the provided clock.
// It returns false if the context was closed before the backoff elapsed.
func Sleep(ctx context.Context, clock clockwork.Clock, config Config, retries int) bool {
	if !config.Enabled() {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(Backoff(config, retries))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// Backoff returns the amount of time to wait before the next retry given the
// number of retries.
// Copied from google.golang.org/grpc@v1.48.0/internal/backoff/backoff.go.
func Backoff(config Config, retries int) time.Duration {
	if retries == 0 {
		return config.BaseDelay
	}

	backoff := float64(config.BaseDelay)
	maxVal := float64(config.MaxDelay)

	for backoff < maxVal && retries > 0 {
		backoff *= config.Multiplier
		retries--
	}

	if backoff > maxVal {
		backoff = maxVal
	}
	// Randomize backoff delays so that if a fleet of agents fail at
	// the same time, they won't retry in lockstep.
	backoff *= 1 + config.Jitter*(randFloat()*2-1)
	if backoff < 0 {
		return 0
	}

	return time.Duration(backoff)
}

// randFloat is aliased for testing.
var randFloat = rand.Float64

// SetRandFloatForT sets the random float internal function for testing.
func SetRandFloatForT(t *testing.T, fn func() float64) {
	t.Helper()

	cached := randFloat
	randFloat = fn

	t.Cleanup(func() {
		randFloat = cached
	})
}
