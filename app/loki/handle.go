// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package loki

import (
	"context"
	"sync/atomic"

	"github.com/nethergamesmc/lokilogger/app/errors"
)

// ErrNotInitialised is returned (or panicked) when an agent is requested before one was set.
var ErrNotInitialised = errors.NewSentinel("loki agent not initialised")

// Handle is a set-once reference to the process wide agent.
// The zero value is ready to use.
type Handle struct {
	agent atomic.Pointer[Agent]
}

// Set sets the agent. It returns an error if an agent was already set.
func (h *Handle) Set(a *Agent) error {
	if a == nil {
		return errors.New("nil loki agent")
	}

	if !h.agent.CompareAndSwap(nil, a) {
		return errors.New("loki agent already set")
	}

	return nil
}

// Lookup returns the agent or ErrNotInitialised.
func (h *Handle) Lookup() (*Agent, error) {
	if a := h.agent.Load(); a != nil {
		return a, nil
	}

	return nil, errors.Wrap(ErrNotInitialised, "lookup agent")
}

// Agent returns the agent. It panics if no agent was set.
func (h *Handle) Agent() *Agent {
	a, err := h.Lookup()
	if err != nil {
		panic(err)
	}

	return a
}

type handleKey struct{}

// WithAgent returns a copy of the context carrying the agent.
func WithAgent(ctx context.Context, a *Agent) context.Context {
	return context.WithValue(ctx, handleKey{}, a)
}

// FromContext returns the agent carried by the context. It panics if the context doesn't carry one.
func FromContext(ctx context.Context) *Agent {
	a, ok := ctx.Value(handleKey{}).(*Agent)
	if !ok || a == nil {
		panic(errors.Wrap(ErrNotInitialised, "agent from context"))
	}

	return a
}
