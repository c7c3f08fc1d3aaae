package reactivity

// refCell is the internal marker interface for atomic cells. All variants
// expose a single value slot; implementations carry their own dep except
// the object-key ref, whose tracking happens on the host target.
type refCell interface {
	Value() any
	SetValue(value any)
	refMarker()
}

func asRefCell(v any) (refCell, bool) {
	r, ok := v.(refCell)
	return r, ok
}

// IsRef reports whether v is an atomic cell of any variant.
func IsRef(v any) bool {
	_, ok := v.(refCell)
	return ok
}

// Unref returns the inner value of a cell, or v unchanged.
func Unref(v any) any {
	if r, ok := v.(refCell); ok {
		return r.Value()
	}
	return v
}

func toReactive(rs *ReactiveSystem, v any) any {
	if isObservableTarget(v) {
		return Reactive(rs, v)
	}
	return v
}

// RefCell is the plain (and shallow) single-slot observed value. The raw
// form is kept for same-value-zero change detection; the wrapped form is
// what reads return.
type RefCell struct {
	rs       *ReactiveSystem
	dep      *Dep
	rawValue any
	value    any
	shallow  bool
}

func (r *RefCell) refMarker() {}

// Ref creates a deep cell: objects read back as their observed wrappers.
func Ref(rs *ReactiveSystem, value any) *RefCell {
	return &RefCell{
		rs:       rs,
		dep:      newDep(),
		rawValue: ToRaw(value),
		value:    toReactive(rs, value),
	}
}

// ShallowRef creates a cell that stores and returns the value as-is.
func ShallowRef(rs *ReactiveSystem, value any) *RefCell {
	return &RefCell{
		rs:       rs,
		dep:      newDep(),
		rawValue: value,
		value:    value,
		shallow:  true,
	}
}

func (r *RefCell) Value() any {
	r.rs.trackRef(r.dep, r)
	return r.value
}

func (r *RefCell) SetValue(value any) {
	newRaw := value
	if !r.shallow {
		newRaw = ToRaw(value)
	}
	if !hasChanged(newRaw, r.rawValue) {
		return
	}
	oldRaw := r.rawValue
	r.rawValue = newRaw
	if r.shallow {
		r.value = value
	} else {
		r.value = toReactive(r.rs, newRaw)
	}
	r.rs.triggerRef(r.dep, r, newRaw, oldRaw)
}

// TriggerRef force-fires a cell's dep, for shallow cells whose inner value
// was mutated in place.
func TriggerRef(v any) {
	switch r := v.(type) {
	case *RefCell:
		r.rs.triggerRef(r.dep, r, r.value, r.value)
	case *ComputedRef:
		r.rs.triggerRef(r.dep, r, r.value, r.value)
	case *CustomRefCell:
		r.trigger()
	}
}

// CustomRefFactory receives track and trigger callbacks bound to the cell
// and returns its get and set implementations.
type CustomRefFactory func(track func(), trigger func()) (get func() any, set func(value any))

// CustomRefCell delegates its value slot to user code.
type CustomRefCell struct {
	rs      *ReactiveSystem
	dep     *Dep
	get     func() any
	set     func(value any)
	trigger func()
}

func (r *CustomRefCell) refMarker() {}

func CustomRef(rs *ReactiveSystem, factory CustomRefFactory) *CustomRefCell {
	r := &CustomRefCell{rs: rs, dep: newDep()}
	track := func() { rs.trackRef(r.dep, r) }
	r.trigger = func() { rs.triggerRef(r.dep, r, nil, nil) }
	r.get, r.set = factory(track, r.trigger)
	return r
}

func (r *CustomRefCell) Value() any {
	return r.get()
}

func (r *CustomRefCell) SetValue(value any) {
	r.set(value)
}

// ObjectRefCell is a cell view over one key of a structural target. It has
// no dep of its own. Over an observed wrapper, reads and writes forward
// through the wrapper, whose handlers do the tracking; over a plain
// container they forward to the raw slot, untracked.
type ObjectRefCell struct {
	source any // *Proxy or a raw structural container
	key    any
}

func (r *ObjectRefCell) refMarker() {}

func (r *ObjectRefCell) Value() any {
	if p, ok := r.source.(*Proxy); ok {
		return p.Get(r.key)
	}
	return rawGet(r.source, r.key)
}

func (r *ObjectRefCell) SetValue(value any) {
	if p, ok := r.source.(*Proxy); ok {
		p.Set(r.key, value)
		return
	}
	rawSet(r.source, r.key, value)
}

// ToRef makes an object-key ref over one slot of an observed wrapper. A
// plain structural target works too; the cell then reads and writes the
// raw slot without tracking.
func ToRef(obj any, key any) *ObjectRefCell {
	return &ObjectRefCell{source: obj, key: normalizeKey(key)}
}

// ToRefs expands each own key of a structural target into an object-key
// ref, keyed by the canonical key string. The length slot of arrays is not
// expanded. A non-observed target warns in debug mode and still expands,
// yielding untracked cells.
func ToRefs(rs *ReactiveSystem, obj any) map[string]*ObjectRefCell {
	if !IsProxy(obj) {
		rs.warn("toRefs() expects a reactive or readonly object, got %T", obj)
	}
	target := ToRaw(obj)
	_, isArr := target.(*Array)
	out := map[string]*ObjectRefCell{}
	for _, k := range rawOwnKeys(target) {
		s, ok := k.(string)
		if !ok {
			continue
		}
		if isArr && s == LengthKey {
			continue
		}
		out[s] = &ObjectRefCell{source: obj, key: s}
	}
	return out
}

// ProxyRefs wraps a plain record in the unwrap-only handler table: reads
// auto-unwrap cells and writes forward into existing cells, with no
// tracking of its own. Reactive wrappers pass through unchanged.
func ProxyRefs(rs *ReactiveSystem, obj any) any {
	if IsReactive(obj) {
		return obj
	}
	switch t := obj.(type) {
	case *Object:
		return &Proxy{rs: rs, target: t, handlers: shallowUnwrapHandlers}
	case *Proxy:
		return t
	}
	rs.warn("proxyRefs() expects an object, got %T", obj)
	return obj
}
