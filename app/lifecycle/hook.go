// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package lifecycle

import (
	"bytes"
	"context"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/log"
	"github.com/nethergamesmc/lokilogger/app/z"
)

// IHookFunc is the life cycle hook function interface.
// Users will mostly wrap functions using one of the types below.
type IHookFunc interface {
	Call(context.Context) error
}

// HookFunc wraps a standard hook function (context and error) as a IHookFunc.
type HookFunc func(ctx context.Context) error

func (fn HookFunc) Call(ctx context.Context) error {
	return fn(ctx)
}

// HookFuncMin wraps a minimum (no context, no error) hook function as a IHookFunc.
type HookFuncMin func()

func (fn HookFuncMin) Call(context.Context) error {
	fn()
	return nil
}

// HookFuncErr wraps an error (no context) hook function as a IHookFunc.
type HookFuncErr func() error

func (fn HookFuncErr) Call(context.Context) error {
	return fn()
}

// HookFuncCtx wraps a context (no error) hook function as a IHookFunc.
type HookFuncCtx func(ctx context.Context)

func (fn HookFuncCtx) Call(ctx context.Context) error {
	fn(ctx)
	return nil
}

// HookStartType defines how a start hook is called.
type HookStartType int

const (
	// AsyncAppCtx hooks are called in a goroutine with the application context,
	// they stop when the application shuts down. Used by line producers.
	AsyncAppCtx HookStartType = iota + 1

	// SyncBackground hooks are called inline with a background context. They must
	// return promptly and are stopped by a stop hook, e.g. starting the agent.
	SyncBackground

	// AsyncBackground hooks are called in a goroutine with a background context
	// and are stopped by a stop hook, e.g. servers.
	AsyncBackground
)

// hook is a start or stop hook.
type hook struct {
	Order     int
	Label     string
	StartType HookStartType
	Func      IHookFunc
}

// firstErr retains the first error reported by any hook.
type firstErr struct {
	mu  sync.Mutex
	err error
}

func (f *firstErr) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err == nil {
		f.err = err
	}
}

func (f *firstErr) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.err
}

// runHooks calls the start hooks, blocks until the application context is closed or a
// start hook failed, then calls the stop hooks bounded by stopTimeout. It returns the
// first error of any hook.
func runHooks(appCtx context.Context, startHooks []hook, stopHooks []hook, stopTimeout time.Duration) error {
	var first firstErr

	// shutdownCtx is closed on shutdown signal or when a start hook fails.
	shutdownCtx, shutdown := context.WithCancel(appCtx)
	defer shutdown()

	if err := startHooksInOrder(shutdownCtx, startHooks, shutdown, &first); err != nil {
		return err
	}

	<-shutdownCtx.Done()

	if appCtx.Err() != nil {
		log.Info(appCtx, "Shutdown signal detected")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	stopCtx = log.WithTopic(stopCtx, "app-stop")
	log.Info(stopCtx, "Shutting down gracefully", z.Dur("timeout", stopTimeout))

	stopHooksInOrder(stopCtx, stopHooks, &first)

	return first.get()
}

// startHooksInOrder calls the start hooks by type. Start hook failures trigger shutdown.
func startHooksInOrder(shutdownCtx context.Context, hooks []hook, shutdown context.CancelFunc, first *firstErr) error {
	backgroundCtx := log.WithTopic(context.Background(), "app-start")

	call := func(ctx context.Context, h hook) {
		err := h.Func.Call(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			first.set(errors.Wrap(err, "start hook", z.Str("hook", h.Label)))
			shutdown()
		}
	}

	for _, h := range hooks {
		if shutdownCtx.Err() != nil {
			return nil //nolint:nilerr // Shutdown before all hooks started.
		}

		switch h.StartType {
		case AsyncAppCtx:
			go call(shutdownCtx, h)
		case SyncBackground:
			call(backgroundCtx, h)
		case AsyncBackground:
			go call(backgroundCtx, h)
		default:
			return errors.New("unexpected hook type", z.Any("type", h.StartType))
		}
	}

	return nil
}

// stopHooksInOrder calls the stop hooks in order. A failing stop hook doesn't skip the
// remaining ones since the agent's final flush is registered last. Only the stop
// timeout aborts the remaining hooks.
func stopHooksInOrder(stopCtx context.Context, hooks []hook, first *firstErr) {
	for _, h := range hooks {
		if stopCtx.Err() != nil {
			first.set(errors.New("shutdown timeout, hook skipped", z.Str("hook", h.Label)))
			return
		}

		t0 := time.Now()
		err := h.Func.Call(stopCtx)

		if errors.Is(stopCtx.Err(), context.DeadlineExceeded) {
			first.set(errors.New("shutdown timeout",
				z.Str("hook", h.Label),
				z.Dur("duration", time.Since(t0)),
				z.Str("stack_dump", goroutineDump()),
			))

			return
		} else if err != nil && !errors.Is(err, context.Canceled) {
			err = errors.Wrap(err, "stop hook", z.Str("hook", h.Label))
			log.Warn(stopCtx, "Stop hook failed, continuing with remaining hooks", err)
			first.set(err)

			continue
		}

		log.Debug(stopCtx, "Stopped", z.Str("hook", h.Label), z.Dur("duration", time.Since(t0)))
	}
}

// goroutineDump returns the stacks of all goroutines, it shows what blocked shutdown.
func goroutineDump() string {
	var buf bytes.Buffer
	_ = pprof.Lookup("goroutine").WriteTo(&buf, 2)

	return buf.String()
}
