package reactivity

import "fmt"

const maxMarkerBits = 30

// EffectFunc is a user computation re-run by the engine when its
// dependencies change.
type EffectFunc func() error

// EffectScheduler, when set, is invoked on trigger in place of a direct
// re-run. The engine never schedules work itself; the scheduler is the
// single seam for batching and derivation invalidation.
type EffectScheduler func()

// TrackEvent is delivered to an effect's OnTrack debug hook every time the
// effect is registered into a dep.
type TrackEvent struct {
	Effect *ReactiveEffect
	Target any
	Op     TrackOpType
	Key    any
}

// TriggerEvent is delivered to an effect's OnTrigger debug hook before the
// effect is dispatched.
type TriggerEvent struct {
	Effect    *ReactiveEffect
	Target    any
	Op        TriggerOpType
	Key       any
	NewValue  any
	OldValue  any
	OldTarget any
}

type OnTrackFunc func(TrackEvent)
type OnTriggerFunc func(TriggerEvent)

// ReactiveEffect owns one computation's dependency bookkeeping. Effects
// form an implicit stack while running; the active effect is the top.
type ReactiveEffect struct {
	rs *ReactiveSystem
	fn func() (any, error)

	scheduler    EffectScheduler
	active       bool
	deps         []*Dep
	allowRecurse bool
	deferStop    bool
	scope        *EffectScope

	onStop    func()
	onTrack   OnTrackFunc
	onTrigger OnTriggerFunc
}

func newReactiveEffect(rs *ReactiveSystem, fn func() (any, error)) *ReactiveEffect {
	return &ReactiveEffect{rs: rs, fn: fn, active: true}
}

func (e *ReactiveEffect) onStack() bool {
	for _, running := range e.rs.effectStack {
		if running == e {
			return true
		}
	}
	return false
}

// run executes the computation with dependency tracking. The bit-masked
// diffing marks every dep the effect held before the run (wasTracked) and
// every dep it reaches during the run (newTracked); the finalize step drops
// exactly the deps that were held but not re-read. Past 30 nested depths
// the bits run out and the engine falls back to clear-and-rebuild.
func (e *ReactiveEffect) run() (result any, err error) {
	if !e.active {
		// Stopped effects still execute when called directly, just
		// without tracking.
		return e.fn()
	}
	rs := e.rs
	if e.onStack() && !e.allowRecurse {
		return nil, nil
	}

	prevShouldTrack := rs.shouldTrack
	rs.effectStack = append(rs.effectStack, e)
	rs.activeEffect = e
	rs.shouldTrack = true

	rs.effectTrackDepth++
	rs.trackOpBit = 1 << rs.effectTrackDepth
	bit := rs.trackOpBit

	if rs.effectTrackDepth <= maxMarkerBits {
		for _, dep := range e.deps {
			dep.wasTracked |= bit
		}
	} else {
		cleanupEffect(e)
	}

	defer func() {
		if rs.effectTrackDepth <= maxMarkerBits {
			finalizeDepMarkers(e, bit)
		}
		rs.effectTrackDepth--
		rs.trackOpBit = 1 << rs.effectTrackDepth

		rs.effectStack = rs.effectStack[:len(rs.effectStack)-1]
		if n := len(rs.effectStack); n > 0 {
			rs.activeEffect = rs.effectStack[n-1]
		} else {
			rs.activeEffect = nil
		}
		rs.shouldTrack = prevShouldTrack

		if e.deferStop {
			e.deferStop = false
			e.stop()
		}
	}()

	return e.fn()
}

// finalizeDepMarkers keeps the deps read in this run and removes the effect
// from every dep that was only reachable in the previous run. Both marker
// bits are cleared on every visited dep.
func finalizeDepMarkers(e *ReactiveEffect, bit uint32) {
	ptr := 0
	for _, dep := range e.deps {
		if dep.wasTracked&bit != 0 && dep.newTracked&bit == 0 {
			dep.remove(e)
		} else {
			e.deps[ptr] = dep
			ptr++
		}
		dep.wasTracked &^= bit
		dep.newTracked &^= bit
	}
	e.deps = e.deps[:ptr]
}

func cleanupEffect(e *ReactiveEffect) {
	for _, dep := range e.deps {
		dep.remove(e)
	}
	e.deps = e.deps[:0]
}

// stop removes the effect from every dep and deactivates it. Idempotent. A
// self-stop from inside the running computation is deferred until the run
// unwinds so the finalize step operates on live bookkeeping.
func (e *ReactiveEffect) stop() {
	if e.onStack() {
		e.deferStop = true
		return
	}
	if !e.active {
		return
	}
	cleanupEffect(e)
	if e.onStop != nil {
		e.onStop()
	}
	e.active = false
}

// EffectOptions tune the public effect constructor.
type EffectOptions struct {
	// Lazy skips the immediate first run; call Run on the returned runner.
	Lazy bool
	// Scheduler is invoked on trigger instead of re-running directly.
	Scheduler EffectScheduler
	// Scope records the effect for bulk stop, overriding the currently
	// entered scope.
	Scope *EffectScope
	// AllowRecurse lets the effect be dispatched by its own trigger.
	AllowRecurse bool
	OnStop       func()
	OnTrack      OnTrackFunc
	OnTrigger    OnTriggerFunc
}

// EffectRunner is the public handle returned by Effect.
type EffectRunner struct {
	Effect *ReactiveEffect
}

func (r *EffectRunner) Run() error {
	if _, err := r.Effect.run(); err != nil {
		return fmt.Errorf("effect run: %w", err)
	}
	return nil
}

func (r *EffectRunner) Stop() {
	r.Effect.stop()
}

// Stop is the free-function form of runner.Stop.
func Stop(r *EffectRunner) {
	r.Effect.stop()
}

// Effect registers fn as a reactive computation and, unless Lazy, runs it
// once immediately. The returned runner re-runs the effect on demand and
// exposes the effect for Stop. The error is the first run's, if any.
func Effect(rs *ReactiveSystem, fn EffectFunc, opts ...EffectOptions) (*EffectRunner, error) {
	e := newReactiveEffect(rs, func() (any, error) {
		return nil, fn()
	})
	var o EffectOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	e.scheduler = o.Scheduler
	e.allowRecurse = o.AllowRecurse
	e.onStop = o.OnStop
	e.onTrack = o.OnTrack
	e.onTrigger = o.OnTrigger
	recordEffectScope(rs, e, o.Scope)

	runner := &EffectRunner{Effect: e}
	if !o.Lazy {
		if _, err := e.run(); err != nil {
			return runner, fmt.Errorf("effect first run: %w", err)
		}
	}
	return runner, nil
}
