package reactivity

// OnErrorFunc receives errors raised by effect functions during trigger
// dispatch, where no caller is on the stack to return them to.
type OnErrorFunc func(err error)

// ReactiveSystem is one engine instance: the registry, the effect stack and
// the tracking state. All observed wrappers and effects belong to exactly
// one system. A system is not safe for concurrent use; confine it to one
// goroutine or guard every entry point with a single mutex.
type ReactiveSystem struct {
	targetMap map[any]*depsByKey
	sweepAt   int

	reactiveMap        map[any]func() any
	shallowReactiveMap map[any]func() any
	readonlyMap        map[any]func() any
	shallowReadonlyMap map[any]func() any

	activeEffect *ReactiveEffect
	effectStack  []*ReactiveEffect

	shouldTrack bool
	trackStack  []bool

	effectTrackDepth int
	trackOpBit       uint32

	activeScope *EffectScope

	onError OnErrorFunc
	warnFn  WarnFunc
	warned  map[uint64]struct{}
}

func NewReactiveSystem(onError OnErrorFunc) *ReactiveSystem {
	return &ReactiveSystem{
		targetMap:          map[any]*depsByKey{},
		sweepAt:            minSweepThreshold,
		reactiveMap:        map[any]func() any{},
		shallowReactiveMap: map[any]func() any{},
		readonlyMap:        map[any]func() any{},
		shallowReadonlyMap: map[any]func() any{},
		shouldTrack:        true,
		trackOpBit:         1,
		onError:            onError,
		warned:             map[uint64]struct{}{},
	}
}

func (rs *ReactiveSystem) handleError(err error) {
	if err == nil {
		return
	}
	if rs.onError != nil {
		rs.onError(err)
	}
}

// PauseTracking disables dependency registration until the matching
// ResetTracking. Used around internal mutations that must not observe their
// own reads, like the array length mutators.
func (rs *ReactiveSystem) PauseTracking() {
	rs.trackStack = append(rs.trackStack, rs.shouldTrack)
	rs.shouldTrack = false
}

// EnableTracking force-enables registration until the matching
// ResetTracking.
func (rs *ReactiveSystem) EnableTracking() {
	rs.trackStack = append(rs.trackStack, rs.shouldTrack)
	rs.shouldTrack = true
}

// ResetTracking pops the pause/enable stack, restoring the previous
// tracking state. An unbalanced reset restores the default of enabled.
func (rs *ReactiveSystem) ResetTracking() {
	n := len(rs.trackStack) - 1
	if n < 0 {
		rs.shouldTrack = true
		return
	}
	rs.shouldTrack = rs.trackStack[n]
	rs.trackStack = rs.trackStack[:n]
}
