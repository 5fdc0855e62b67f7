// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

// Package lifecycle provides a life cycle manager abstracting the starting and stopping
// of processes by registered start or stop hooks.
//
// The following features as supported:
//  - Start hooks can either be called synchronously or asynchronously.
//  - Start hooks can use the application context (hard shutdown) or background context (graceful shutdown).
//  - Stop hooks are synchronous and use a shutdown context with a timeout (10s by default).
//  - Ordering of start and stop hooks.
//  - Any error from start hooks immediately triggers graceful shutdown.
//  - Closing application context triggers graceful shutdown.
//  - Stop hook errors are returned but never skip later stop hooks, only the stop timeout does.
package lifecycle

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

const defaultStopTimeout = 10 * time.Second

// Manager manages process life cycle by registered start and stop hooks.
type Manager struct {
	// StopTimeout bounds all stop hooks together, it defaults to 10s.
	// It should exceed the time the agent's final flush may take.
	StopTimeout time.Duration

	mu         sync.Mutex
	started    bool
	startHooks []hook
	stopHooks  []hook
}

// RegisterStart registers a start hook. The type defines whether it is sync or async and which context is used.
// The order defines the order in which hooks are called.
func (m *Manager) RegisterStart(typ HookStartType, order OrderStart, fn IHookFunc) {
	m.register(&m.startHooks, hook{Label: order.String(), Order: int(order), StartType: typ, Func: fn})
}

// RegisterStop registers a synchronous stop hook that will be called with the shutdown context that may timeout.
func (m *Manager) RegisterStop(order OrderStop, fn IHookFunc) {
	m.register(&m.stopHooks, hook{Label: order.String(), Order: int(order), Func: fn})
}

func (m *Manager) register(hooks *[]hook, h hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		panic(any("cycle already started"))
	}

	*hooks = append(*hooks, h)
}

// Run the lifecycle; start all hooks, waiting for shutdown, stop all hooks.
// Hooks are called by order, hooks of equal order by registration.
func (m *Manager) Run(appCtx context.Context) error {
	m.mu.Lock()
	m.started = true
	startHooks := sortedHooks(m.startHooks)
	stopHooks := sortedHooks(m.stopHooks)
	m.mu.Unlock()

	stopTimeout := m.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}

	return runHooks(appCtx, startHooks, stopHooks, stopTimeout)
}

// sortedHooks returns a copy of the hooks stable sorted by order.
func sortedHooks(hooks []hook) []hook {
	resp := slices.Clone(hooks)
	slices.SortStableFunc(resp, func(a, b hook) int {
		return cmp.Compare(a.Order, b.Order)
	})

	return resp
}
