package reactivity

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Track registers the active effect in the dep for (target, key). No-op
// when tracking is paused or no effect is running; a read outside any
// effect never touches the registry. This is the only legal path for
// observed wrappers to register reads.
func (rs *ReactiveSystem) Track(target any, op TrackOpType, key any) {
	if !rs.shouldTrack || rs.activeEffect == nil {
		return
	}
	dm := rs.depsFor(target)
	if dm == nil {
		return
	}
	dep := dm.getOrCreate(key)
	rs.trackEffects(dep, target, op, key)
}

func (rs *ReactiveSystem) trackEffects(dep *Dep, target any, op TrackOpType, key any) {
	e := rs.activeEffect
	shouldTrack := false
	if rs.effectTrackDepth <= maxMarkerBits {
		if dep.newTracked&rs.trackOpBit == 0 {
			dep.newTracked |= rs.trackOpBit
			// Already tracked before this run means the link survives
			// the finalize diff; nothing to add.
			shouldTrack = dep.wasTracked&rs.trackOpBit == 0
		}
	} else {
		shouldTrack = !dep.has(e)
	}
	if !shouldTrack {
		return
	}
	dep.add(e)
	e.deps = append(e.deps, dep)
	if e.onTrack != nil {
		e.onTrack(TrackEvent{Effect: e, Target: target, Op: op, Key: key})
	}
}

// Trigger fires every effect implicated by a write on (target, key).
func (rs *ReactiveSystem) Trigger(target any, op TriggerOpType, key any) {
	rs.trigger(target, op, key, nil, nil, nil)
}

// trigger collects the implicated deps per the operation kind, union-merges
// their effects and dispatches. The collection rules are deliberate:
//
//	CLEAR                  every dep of the target
//	length set on array    indexed deps at or past the new length, plus length
//	ADD    non-array       key, iterate, and map-key iterate on keyed maps
//	ADD    array int key   key, length
//	DELETE non-array       key, iterate, and map-key iterate on keyed maps
//	SET    keyed map       key, iterate
//	SET    otherwise       key
func (rs *ReactiveSystem) trigger(target any, op TriggerOpType, key, newValue, oldValue, oldTarget any) {
	dm := rs.lookupDeps(target)
	if dm == nil {
		return
	}

	_, isArr := target.(*Array)
	_, isMap := target.(*MapCollection)

	var deps []*Dep
	addDep := func(k any) {
		if d := dm.get(k); d != nil {
			deps = append(deps, d)
		}
	}

	switch {
	case op == TriggerOpClear:
		for _, k := range dm.order {
			deps = append(deps, dm.deps[k])
		}
	case isArr && key == LengthKey:
		newLen, _ := toInt(newValue)
		for _, k := range dm.order {
			if k == LengthKey {
				deps = append(deps, dm.deps[k])
			} else if idx, ok := toIndex(k); ok && idx >= newLen {
				deps = append(deps, dm.deps[k])
			}
		}
	default:
		if key != nil {
			addDep(key)
		}
		switch op {
		case TriggerOpAdd:
			if !isArr {
				addDep(iterateKey)
				if isMap {
					addDep(mapKeyIterateKey)
				}
			} else if isIntegerKey(key) {
				addDep(LengthKey)
			}
		case TriggerOpDelete:
			if !isArr {
				addDep(iterateKey)
				if isMap {
					addDep(mapKeyIterateKey)
				}
			}
		case TriggerOpSet:
			if isMap {
				addDep(iterateKey)
			}
		}
	}

	ev := TriggerEvent{
		Target:    target,
		Op:        op,
		Key:       key,
		NewValue:  newValue,
		OldValue:  oldValue,
		OldTarget: oldTarget,
	}

	if len(deps) == 1 {
		rs.triggerEffects(deps[0].snapshot(), ev)
		return
	}

	// Union-merge across deps so an effect registered in several
	// implicated slots fires once per trigger.
	seen := mapset.NewThreadUnsafeSet[*ReactiveEffect]()
	var ordered []*ReactiveEffect
	for _, d := range deps {
		for _, e := range d.order {
			if seen.Add(e) {
				ordered = append(ordered, e)
			}
		}
	}
	rs.triggerEffects(ordered, ev)
}

// triggerEffects dispatches a snapshot of effects. The snapshot matters:
// schedulers and runs mutate deps while we iterate. The running effect is
// skipped unless it opted into recursion.
func (rs *ReactiveSystem) triggerEffects(effects []*ReactiveEffect, ev TriggerEvent) {
	for _, e := range effects {
		if e == rs.activeEffect && !e.allowRecurse {
			continue
		}
		if e.onTrigger != nil {
			ev.Effect = e
			e.onTrigger(ev)
		}
		if e.scheduler != nil {
			e.scheduler()
			continue
		}
		if _, err := e.run(); err != nil {
			rs.handleError(err)
		}
	}
}

// trackRef registers the active effect in a cell's private dep.
func (rs *ReactiveSystem) trackRef(dep *Dep, owner any) {
	if !rs.shouldTrack || rs.activeEffect == nil {
		return
	}
	rs.trackEffects(dep, owner, TrackOpGet, "value")
}

// triggerRef fires a cell's private dep.
func (rs *ReactiveSystem) triggerRef(dep *Dep, owner any, newValue, oldValue any) {
	if dep == nil || dep.len() == 0 {
		return
	}
	rs.triggerEffects(dep.snapshot(), TriggerEvent{
		Target:   owner,
		Op:       TriggerOpSet,
		Key:      "value",
		NewValue: newValue,
		OldValue: oldValue,
	})
}
