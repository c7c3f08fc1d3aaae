package reactivity

import "weak"

// The registry is the two-level mapping target → (key → Dep). The outer
// level is keyed by weak pointers so an observed target dropped by the
// caller does not stay alive through its deps or cached proxy. weak.Make
// returns equal pointers for the same target, which makes the weak pointer
// itself a usable map key. Dead entries are swept opportunistically from the
// engine's own goroutine instead of a finalizer, keeping the single-mutator
// model intact.

type depsByKey struct {
	alive func() bool
	deps  map[any]*Dep
	order []any
}

func (dm *depsByKey) get(key any) *Dep {
	return dm.deps[key]
}

func (dm *depsByKey) getOrCreate(key any) *Dep {
	d := dm.deps[key]
	if d == nil {
		d = newDep()
		dm.deps[key] = d
		dm.order = append(dm.order, key)
	}
	return d
}

// weakKey erases the typed weak pointer for use as a registry key, together
// with a liveness probe for the sweeper. Nil key means the value is not an
// observable target.
func weakKey(target any) (key any, alive func() bool) {
	switch t := target.(type) {
	case *Object:
		wp := weak.Make(t)
		return wp, func() bool { return wp.Value() != nil }
	case *Array:
		wp := weak.Make(t)
		return wp, func() bool { return wp.Value() != nil }
	case *MapCollection:
		wp := weak.Make(t)
		return wp, func() bool { return wp.Value() != nil }
	case *SetCollection:
		wp := weak.Make(t)
		return wp, func() bool { return wp.Value() != nil }
	case *Proxy:
		wp := weak.Make(t)
		return wp, func() bool { return wp.Value() != nil }
	case *CollectionProxy:
		wp := weak.Make(t)
		return wp, func() bool { return wp.Value() != nil }
	}
	return nil, nil
}

// weakProxy erases a weak reference to a constructed wrapper for the proxy
// caches. The cache must not keep the wrapper (and through it the target)
// alive.
func weakProxy(proxy any) func() any {
	switch p := proxy.(type) {
	case *Proxy:
		wp := weak.Make(p)
		return func() any {
			if v := wp.Value(); v != nil {
				return v
			}
			return nil
		}
	case *CollectionProxy:
		wp := weak.Make(p)
		return func() any {
			if v := wp.Value(); v != nil {
				return v
			}
			return nil
		}
	}
	return func() any { return proxy }
}

// depsFor resolves (creating lazily) the key→Dep level for a target.
func (rs *ReactiveSystem) depsFor(target any) *depsByKey {
	key, aliveFn := weakKey(target)
	if key == nil {
		return nil
	}
	dm := rs.targetMap[key]
	if dm == nil {
		dm = &depsByKey{alive: aliveFn, deps: map[any]*Dep{}}
		rs.targetMap[key] = dm
		rs.maybeSweep()
	}
	return dm
}

// lookupDeps never creates; trigger on a never-tracked target is a no-op.
func (rs *ReactiveSystem) lookupDeps(target any) *depsByKey {
	key, _ := weakKey(target)
	if key == nil {
		return nil
	}
	return rs.targetMap[key]
}

func (rs *ReactiveSystem) maybeSweep() {
	if len(rs.targetMap) < rs.sweepAt {
		return
	}
	for k, dm := range rs.targetMap {
		if !dm.alive() {
			delete(rs.targetMap, k)
		}
	}
	for _, cache := range []map[any]func() any{
		rs.reactiveMap, rs.shallowReactiveMap, rs.readonlyMap, rs.shallowReadonlyMap,
	} {
		for k, get := range cache {
			if get() == nil {
				delete(cache, k)
			}
		}
	}
	next := 2 * len(rs.targetMap)
	if next < minSweepThreshold {
		next = minSweepThreshold
	}
	rs.sweepAt = next
}

const minSweepThreshold = 64
