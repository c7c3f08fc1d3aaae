package reactivity_test

import (
	"errors"
	"testing"

	"github.com/delaneyj/proxyparty/reactivity"
	"github.com/stretchr/testify/assert"
)

func newSystem(t *testing.T) *reactivity.ReactiveSystem {
	return reactivity.NewReactiveSystem(func(err error) {
		assert.FailNow(t, err.Error())
	})
}

// should run the passed function once immediately
func TestEffectRunsOnce(t *testing.T) {
	rs := newSystem(t)
	calls := 0
	_, err := reactivity.Effect(rs, func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

// should observe basic properties
func TestEffectObservesBasicProperties(t *testing.T) {
	rs := newSystem(t)
	s := reactivity.Reactive(rs, reactivity.FromMap(map[string]any{"count": 0})).(*reactivity.Proxy)

	log := []any{}
	reactivity.Effect(rs, func() error {
		log = append(log, s.Get("count"))
		return nil
	})
	assert.Equal(t, []any{0}, log)

	s.Set("count", 1)
	assert.Equal(t, []any{0, 1}, log)

	// writing the same value must not re-fire
	s.Set("count", 1)
	assert.Equal(t, []any{0, 1}, log)
}

// should observe multiple keys and newly added keys
func TestEffectObservesNewKeys(t *testing.T) {
	rs := newSystem(t)
	o := reactivity.Reactive(rs, reactivity.NewObject()).(*reactivity.Proxy)

	runs := 0
	reactivity.Effect(rs, func() error {
		runs++
		_ = o.Get("missing")
		return nil
	})
	assert.Equal(t, 1, runs)

	o.Set("missing", "here now")
	assert.Equal(t, 2, runs)
}

// should handle nested effects with separate dependency sets
func TestNestedEffects(t *testing.T) {
	rs := newSystem(t)
	a := reactivity.Reactive(rs, reactivity.FromMap(map[string]any{"x": 1, "z": 10})).(*reactivity.Proxy)
	b := reactivity.Reactive(rs, reactivity.FromMap(map[string]any{"y": 2})).(*reactivity.Proxy)

	outerRuns, innerRuns := 0, 0
	reactivity.Effect(rs, func() error {
		outerRuns++
		_ = a.Get("x")
		reactivity.Effect(rs, func() error {
			innerRuns++
			_ = b.Get("y")
			return nil
		})
		_ = a.Get("z")
		return nil
	})
	assert.Equal(t, 1, outerRuns)
	assert.Equal(t, 1, innerRuns)

	// inner dep re-runs only the inner effect, not the outer
	b.Set("y", 3)
	assert.Equal(t, 1, outerRuns)
	assert.Equal(t, 2, innerRuns)

	// outer dep re-runs the outer, which re-creates an inner
	a.Set("x", 2)
	assert.Equal(t, 2, outerRuns)
	assert.Equal(t, 3, innerRuns)

	// the outer must also depend on the key read after the inner ran
	a.Set("z", 20)
	assert.Equal(t, 3, outerRuns)
}

// should drop deps that were not re-read in the latest run
func TestEffectDropsStaleDeps(t *testing.T) {
	rs := newSystem(t)
	cond := reactivity.Ref(rs, true)
	a := reactivity.Ref(rs, "a")
	b := reactivity.Ref(rs, "b")

	runs := 0
	reactivity.Effect(rs, func() error {
		runs++
		if cond.Value().(bool) {
			_ = a.Value()
		} else {
			_ = b.Value()
		}
		return nil
	})
	assert.Equal(t, 1, runs)

	// b is not a dep yet
	b.SetValue("b2")
	assert.Equal(t, 1, runs)

	cond.SetValue(false)
	assert.Equal(t, 2, runs)

	// a must have been dropped by the re-tracking diff
	a.SetValue("a2")
	assert.Equal(t, 2, runs)

	b.SetValue("b3")
	assert.Equal(t, 3, runs)
}

// should not fire an effect registered in several implicated slots twice per trigger
func TestTriggerDeduplicatesAcrossDeps(t *testing.T) {
	rs := newSystem(t)
	arr := reactivity.Reactive(rs, reactivity.FromSlice([]any{1, 2, 3})).(*reactivity.Proxy)

	runs := 0
	reactivity.Effect(rs, func() error {
		runs++
		_ = arr.Get(2)
		_ = arr.Len()
		return nil
	})
	assert.Equal(t, 1, runs)

	// shrinking fires both the index 2 dep and the length dep, merged
	arr.Set("length", 1)
	assert.Equal(t, 2, runs)
}

// should terminate when an effect writes its own dependency
func TestSelfTriggerTerminates(t *testing.T) {
	rs := newSystem(t)
	x := reactivity.Ref(rs, 0)

	runs := 0
	reactivity.Effect(rs, func() error {
		runs++
		x.SetValue(x.Value().(int) + 1)
		return nil
	})
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, x.Value())

	x.SetValue(10)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 11, x.Value())
}

// should allow self re-dispatch with AllowRecurse through a scheduler
func TestAllowRecurse(t *testing.T) {
	rs := newSystem(t)
	x := reactivity.Ref(rs, 0)

	queued := 0
	reactivity.Effect(rs, func() error {
		if x.Value().(int) < 3 {
			x.SetValue(x.Value().(int) + 1)
		}
		return nil
	}, reactivity.EffectOptions{
		AllowRecurse: true,
		Scheduler: func() {
			queued++
		},
	})
	assert.Equal(t, 1, queued)
}

// should not run stopped effects on trigger but still run them when invoked directly
func TestStop(t *testing.T) {
	rs := newSystem(t)
	s := reactivity.Reactive(rs, reactivity.FromMap(map[string]any{"n": 1})).(*reactivity.Proxy)

	runs := 0
	runner, _ := reactivity.Effect(rs, func() error {
		runs++
		_ = s.Get("n")
		return nil
	})
	assert.Equal(t, 1, runs)

	s.Set("n", 2)
	assert.Equal(t, 2, runs)

	reactivity.Stop(runner)
	s.Set("n", 3)
	assert.Equal(t, 2, runs)

	// direct invocation still executes, untracked
	assert.NoError(t, runner.Run())
	assert.Equal(t, 3, runs)
	s.Set("n", 4)
	assert.Equal(t, 3, runs)

	// stop is idempotent
	reactivity.Stop(runner)
	reactivity.Stop(runner)
}

// should invoke OnStop once when stopping
func TestOnStop(t *testing.T) {
	rs := newSystem(t)
	stopped := 0
	runner, _ := reactivity.Effect(rs, func() error { return nil },
		reactivity.EffectOptions{OnStop: func() { stopped++ }})
	runner.Stop()
	runner.Stop()
	assert.Equal(t, 1, stopped)
}

// should defer the first run when lazy
func TestLazyEffect(t *testing.T) {
	rs := newSystem(t)
	runs := 0
	runner, err := reactivity.Effect(rs, func() error {
		runs++
		return nil
	}, reactivity.EffectOptions{Lazy: true})
	assert.NoError(t, err)
	assert.Equal(t, 0, runs)
	assert.NoError(t, runner.Run())
	assert.Equal(t, 1, runs)
}

// should call the scheduler on trigger instead of re-running
func TestScheduler(t *testing.T) {
	rs := newSystem(t)
	n := reactivity.Ref(rs, 1)

	runs := 0
	scheduled := 0
	runner, _ := reactivity.Effect(rs, func() error {
		runs++
		_ = n.Value()
		return nil
	}, reactivity.EffectOptions{Scheduler: func() { scheduled++ }})
	assert.Equal(t, 1, runs)

	n.SetValue(2)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, scheduled)

	// the scheduler decides when to actually run
	assert.NoError(t, runner.Run())
	assert.Equal(t, 2, runs)

	n.SetValue(3)
	assert.Equal(t, 2, scheduled)
}

// should propagate user errors from a direct run and keep bookkeeping intact
func TestEffectErrorPropagation(t *testing.T) {
	rs := reactivity.NewReactiveSystem(nil)
	n := reactivity.Ref(rs, 1)
	boom := errors.New("boom")

	fail := true
	runner, err := reactivity.Effect(rs, func() error {
		_ = n.Value()
		if fail {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)

	// the failing run still registered its deps and unwound the stack
	fail = false
	n.SetValue(2)
	assert.Equal(t, 2, n.Value())
	assert.NoError(t, runner.Run())
}

// should route errors raised during trigger dispatch to the system handler
func TestEffectErrorDuringTrigger(t *testing.T) {
	var caught error
	rs := reactivity.NewReactiveSystem(func(err error) { caught = err })
	n := reactivity.Ref(rs, 1)
	boom := errors.New("boom")

	fail := false
	reactivity.Effect(rs, func() error {
		_ = n.Value()
		if fail {
			return boom
		}
		return nil
	})

	fail = true
	n.SetValue(2)
	assert.ErrorIs(t, caught, boom)
}

// should deliver OnTrack and OnTrigger debug events
func TestDebugEvents(t *testing.T) {
	rs := newSystem(t)
	s := reactivity.Reactive(rs, reactivity.FromMap(map[string]any{"n": 1})).(*reactivity.Proxy)

	var tracks []reactivity.TrackEvent
	var triggers []reactivity.TriggerEvent
	reactivity.Effect(rs, func() error {
		_ = s.Get("n")
		return nil
	}, reactivity.EffectOptions{
		OnTrack:   func(ev reactivity.TrackEvent) { tracks = append(tracks, ev) },
		OnTrigger: func(ev reactivity.TriggerEvent) { triggers = append(triggers, ev) },
	})
	assert.Len(t, tracks, 1)
	assert.Equal(t, reactivity.TrackOpGet, tracks[0].Op)
	assert.Equal(t, "n", tracks[0].Key)

	s.Set("n", 2)
	assert.Len(t, triggers, 1)
	assert.Equal(t, reactivity.TriggerOpSet, triggers[0].Op)
	assert.Equal(t, "n", triggers[0].Key)
	assert.Equal(t, 2, triggers[0].NewValue)
	assert.Equal(t, 1, triggers[0].OldValue)
}

// should restore the previous tracking state after pause and reset
func TestPauseResetTracking(t *testing.T) {
	rs := newSystem(t)
	n := reactivity.Ref(rs, 1)

	runs := 0
	reactivity.Effect(rs, func() error {
		runs++
		rs.PauseTracking()
		_ = n.Value()
		rs.ResetTracking()
		return nil
	})
	assert.Equal(t, 1, runs)

	// the paused read must not have registered
	n.SetValue(2)
	assert.Equal(t, 1, runs)
}

// should re-enable tracking inside a paused region with EnableTracking
func TestEnableTracking(t *testing.T) {
	rs := newSystem(t)
	n := reactivity.Ref(rs, 1)

	runs := 0
	reactivity.Effect(rs, func() error {
		runs++
		rs.PauseTracking()
		rs.EnableTracking()
		_ = n.Value()
		rs.ResetTracking()
		rs.ResetTracking()
		return nil
	})
	assert.Equal(t, 1, runs)

	n.SetValue(2)
	assert.Equal(t, 2, runs)
}

// should survive recursion deeper than the marker bits
func TestDeepNestingFallback(t *testing.T) {
	rs := newSystem(t)
	src := reactivity.Ref(rs, 1)

	// a chain of 40 derivations forces runs nested past the bit budget
	cells := make([]*reactivity.ComputedRef, 0, 40)
	cells = append(cells, reactivity.Computed(rs, func(old any) any {
		return src.Value().(int) + 1
	}))
	for i := 1; i < 40; i++ {
		inner := cells[i-1]
		cells = append(cells, reactivity.Computed(rs, func(old any) any {
			return inner.Value().(int) + 1
		}))
	}

	final := cells[len(cells)-1]
	assert.Equal(t, 41, final.Value())

	src.SetValue(2)
	assert.Equal(t, 42, final.Value())
}
