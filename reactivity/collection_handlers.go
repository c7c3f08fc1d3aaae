package reactivity

// CollectionProxy is the observed wrapper for keyed collections (Map and
// Set flavors). The same track/trigger contract as the structural handlers,
// instrumented per method.
type CollectionProxy struct {
	rs       *ReactiveSystem
	target   any // *MapCollection, *SetCollection, or an inner *CollectionProxy
	handlers *collectionHandlers
}

type collectionHandlers struct {
	readonly bool
	shallow  bool
}

var (
	mutableCollectionHandlers         = &collectionHandlers{}
	readonlyCollectionHandlers        = &collectionHandlers{readonly: true}
	shallowCollectionHandlers         = &collectionHandlers{shallow: true}
	shallowReadonlyCollectionHandlers = &collectionHandlers{readonly: true, shallow: true}
)

func (h *collectionHandlers) wrap(rs *ReactiveSystem, v any) any {
	if h.shallow || !isObservableTarget(v) {
		return v
	}
	if h.readonly {
		return Readonly(rs, v)
	}
	return Reactive(rs, v)
}

func (cp *CollectionProxy) rawMap() (*MapCollection, bool) {
	m, ok := ToRaw(cp.target).(*MapCollection)
	return m, ok
}

func (cp *CollectionProxy) rawSetCol() (*SetCollection, bool) {
	s, ok := ToRaw(cp.target).(*SetCollection)
	return s, ok
}

// Get reads a map entry. Both the given key and its raw form are tracked
// and probed, so lookups keyed by a wrapper still hit entries stored under
// the raw target and vice versa.
func (cp *CollectionProxy) Get(key any) any {
	m, ok := cp.rawMap()
	if !ok {
		cp.rs.warn("get on non-map collection %T", cp.target)
		return nil
	}
	rawKey := ToRaw(key)
	if !cp.handlers.readonly {
		if !sameValueZero(key, rawKey) {
			cp.rs.Track(m, TrackOpGet, key)
		}
		cp.rs.Track(m, TrackOpGet, rawKey)
	}
	if m.Has(key) {
		return cp.handlers.wrap(cp.rs, m.Get(key))
	}
	if m.Has(rawKey) {
		return cp.handlers.wrap(cp.rs, m.Get(rawKey))
	}
	return nil
}

// Set writes a map entry, triggering ADD or SET.
func (cp *CollectionProxy) Set(key, value any) {
	if cp.handlers.readonly {
		cp.rs.warn("set operation on key %v failed: target is readonly", key)
		return
	}
	m, ok := cp.rawMap()
	if !ok {
		cp.rs.warn("set on non-map collection %T", cp.target)
		return
	}
	if !cp.handlers.shallow {
		value = ToRaw(value)
	}
	hadKey := m.Has(key)
	if !hadKey {
		key = ToRaw(key)
		hadKey = m.Has(key)
	} else if cp.rs.debug() {
		cp.checkIdentityKeys(key)
	}
	oldValue := m.Get(key)
	m.Set(key, value)
	if !hadKey {
		cp.rs.trigger(m, TriggerOpAdd, key, value, nil, nil)
	} else if hasChanged(value, oldValue) {
		cp.rs.trigger(m, TriggerOpSet, key, value, oldValue, nil)
	}
}

// Add inserts into a set flavor, triggering ADD for new values only.
func (cp *CollectionProxy) Add(value any) {
	if cp.handlers.readonly {
		cp.rs.warn("add operation failed: target is readonly")
		return
	}
	s, ok := cp.rawSetCol()
	if !ok {
		cp.rs.warn("add on non-set collection %T", cp.target)
		return
	}
	if !cp.handlers.shallow {
		value = ToRaw(value)
	}
	if s.Has(value) {
		return
	}
	s.Add(value)
	cp.rs.trigger(s, TriggerOpAdd, value, value, nil, nil)
}

// Has answers membership for either flavor, tracking HAS on key and raw
// key.
func (cp *CollectionProxy) Has(key any) bool {
	raw := ToRaw(cp.target)
	rawKey := ToRaw(key)
	if !cp.handlers.readonly {
		if !sameValueZero(key, rawKey) {
			cp.rs.Track(raw, TrackOpHas, key)
		}
		cp.rs.Track(raw, TrackOpHas, rawKey)
	}
	switch t := raw.(type) {
	case *MapCollection:
		return t.Has(key) || t.Has(rawKey)
	case *SetCollection:
		return t.Has(key) || t.Has(rawKey)
	}
	return false
}

// Delete removes an entry, triggering DELETE with the prior value.
func (cp *CollectionProxy) Delete(key any) bool {
	if cp.handlers.readonly {
		cp.rs.warn("delete operation on key %v failed: target is readonly", key)
		return false
	}
	raw := ToRaw(cp.target)
	switch t := raw.(type) {
	case *MapCollection:
		hadKey := t.Has(key)
		if !hadKey {
			key = ToRaw(key)
			hadKey = t.Has(key)
		} else if cp.rs.debug() {
			cp.checkIdentityKeys(key)
		}
		oldValue := t.Get(key)
		result := t.Delete(key)
		if hadKey {
			cp.rs.trigger(t, TriggerOpDelete, key, nil, oldValue, nil)
		}
		return result
	case *SetCollection:
		hadKey := t.Has(key)
		if !hadKey {
			key = ToRaw(key)
			hadKey = t.Has(key)
		}
		result := t.Delete(key)
		if hadKey {
			cp.rs.trigger(t, TriggerOpDelete, key, nil, key, nil)
		}
		return result
	}
	return false
}

// Clear empties the collection, triggering CLEAR. In debug mode the prior
// contents travel on the event as the old target.
func (cp *CollectionProxy) Clear() {
	if cp.handlers.readonly {
		cp.rs.warn("clear operation failed: target is readonly")
		return
	}
	raw := ToRaw(cp.target)
	switch t := raw.(type) {
	case *MapCollection:
		hadItems := t.Len() > 0
		var oldTarget any
		if cp.rs.debug() {
			snapshot := NewMapCollection()
			for _, k := range t.Keys() {
				snapshot.Set(k, t.Get(k))
			}
			oldTarget = snapshot
		}
		t.Clear()
		if hadItems {
			cp.rs.trigger(t, TriggerOpClear, nil, nil, nil, oldTarget)
		}
	case *SetCollection:
		hadItems := t.Len() > 0
		var oldTarget any
		if cp.rs.debug() {
			oldTarget = NewSetCollection(t.Values()...)
		}
		t.Clear()
		if hadItems {
			cp.rs.trigger(t, TriggerOpClear, nil, nil, nil, oldTarget)
		}
	}
}

// Size reads the entry count, tracking iteration.
func (cp *CollectionProxy) Size() int {
	raw := ToRaw(cp.target)
	if !cp.handlers.readonly {
		cp.rs.Track(raw, TrackOpIterate, iterateKey)
	}
	switch t := raw.(type) {
	case *MapCollection:
		return t.Len()
	case *SetCollection:
		return t.Len()
	}
	return 0
}

// ForEach visits entries in insertion order with wrapped values and keys.
// For the set flavor value and key are the same element, as in the host
// idiom.
func (cp *CollectionProxy) ForEach(fn func(value, key any)) {
	raw := ToRaw(cp.target)
	if !cp.handlers.readonly {
		cp.rs.Track(raw, TrackOpIterate, iterateKey)
	}
	switch t := raw.(type) {
	case *MapCollection:
		for _, k := range t.Keys() {
			fn(cp.handlers.wrap(cp.rs, t.Get(k)), cp.handlers.wrap(cp.rs, k))
		}
	case *SetCollection:
		for _, v := range t.Values() {
			w := cp.handlers.wrap(cp.rs, v)
			fn(w, w)
		}
	}
}

// Keys iterates keys. Map key iteration has its own dep so value-only SET
// writes do not re-run key iterators.
func (cp *CollectionProxy) Keys() []any {
	raw := ToRaw(cp.target)
	switch t := raw.(type) {
	case *MapCollection:
		if !cp.handlers.readonly {
			cp.rs.Track(t, TrackOpIterate, mapKeyIterateKey)
		}
		out := make([]any, 0, t.Len())
		for _, k := range t.Keys() {
			out = append(out, cp.handlers.wrap(cp.rs, k))
		}
		return out
	case *SetCollection:
		if !cp.handlers.readonly {
			cp.rs.Track(t, TrackOpIterate, iterateKey)
		}
		out := make([]any, 0, t.Len())
		for _, v := range t.Values() {
			out = append(out, cp.handlers.wrap(cp.rs, v))
		}
		return out
	}
	return nil
}

// Values iterates values, tracking iteration.
func (cp *CollectionProxy) Values() []any {
	raw := ToRaw(cp.target)
	if !cp.handlers.readonly {
		cp.rs.Track(raw, TrackOpIterate, iterateKey)
	}
	switch t := raw.(type) {
	case *MapCollection:
		out := make([]any, 0, t.Len())
		for _, k := range t.Keys() {
			out = append(out, cp.handlers.wrap(cp.rs, t.Get(k)))
		}
		return out
	case *SetCollection:
		out := make([]any, 0, t.Len())
		for _, v := range t.Values() {
			out = append(out, cp.handlers.wrap(cp.rs, v))
		}
		return out
	}
	return nil
}

// Entries iterates key/value pairs, tracking iteration.
func (cp *CollectionProxy) Entries() [][2]any {
	raw := ToRaw(cp.target)
	if !cp.handlers.readonly {
		cp.rs.Track(raw, TrackOpIterate, iterateKey)
	}
	switch t := raw.(type) {
	case *MapCollection:
		out := make([][2]any, 0, t.Len())
		for _, k := range t.Keys() {
			out = append(out, [2]any{cp.handlers.wrap(cp.rs, k), cp.handlers.wrap(cp.rs, t.Get(k))})
		}
		return out
	case *SetCollection:
		out := make([][2]any, 0, t.Len())
		for _, v := range t.Values() {
			w := cp.handlers.wrap(cp.rs, v)
			out = append(out, [2]any{w, w})
		}
		return out
	}
	return nil
}

// checkIdentityKeys flags a collection holding both the raw and the wrapped
// form of the same key, which is almost always a bug in caller code.
func (cp *CollectionProxy) checkIdentityKeys(key any) {
	rawKey := ToRaw(key)
	if sameValueZero(key, rawKey) {
		return
	}
	raw := ToRaw(cp.target)
	both := false
	switch t := raw.(type) {
	case *MapCollection:
		both = t.Has(key) && t.Has(rawKey)
	case *SetCollection:
		both = t.Has(key) && t.Has(rawKey)
	}
	if both {
		cp.rs.warn("reactive collection contains both the raw and reactive form of the same key %v", rawKey)
	}
}
