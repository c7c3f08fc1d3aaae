package reactivity

type targetFlavor uint8

const (
	flavorInvalid targetFlavor = iota
	flavorCommon
	flavorCollection
)

func targetFlavorOf(target any) targetFlavor {
	switch t := ToRaw(target).(type) {
	case *Object:
		if t.skip {
			return flavorInvalid
		}
		return flavorCommon
	case *Array:
		if t.skip {
			return flavorInvalid
		}
		return flavorCommon
	case *MapCollection:
		if t.skip {
			return flavorInvalid
		}
		return flavorCollection
	case *SetCollection:
		if t.skip {
			return flavorInvalid
		}
		return flavorCollection
	}
	return flavorInvalid
}

func isObservableTarget(v any) bool {
	switch v.(type) {
	case *Object, *Array, *MapCollection, *SetCollection, *Proxy, *CollectionProxy:
		return true
	}
	return false
}

func (h *structuralHandlers) flavorCache(rs *ReactiveSystem) map[any]func() any {
	switch {
	case h.readonly && h.shallow:
		return rs.shallowReadonlyMap
	case h.readonly:
		return rs.readonlyMap
	case h.shallow:
		return rs.shallowReactiveMap
	}
	return rs.reactiveMap
}

func (h *collectionHandlers) flavorCache(rs *ReactiveSystem) map[any]func() any {
	switch {
	case h.readonly && h.shallow:
		return rs.shallowReadonlyMap
	case h.readonly:
		return rs.readonlyMap
	case h.shallow:
		return rs.shallowReactiveMap
	}
	return rs.reactiveMap
}

func (rs *ReactiveSystem) cachedProxy(cache map[any]func() any, target any) any {
	key, _ := weakKey(target)
	if key == nil {
		return nil
	}
	get := cache[key]
	if get == nil {
		return nil
	}
	return get()
}

func (rs *ReactiveSystem) storeProxy(cache map[any]func() any, target, proxy any) {
	key, _ := weakKey(target)
	if key == nil {
		return
	}
	cache[key] = weakProxy(proxy)
	rs.maybeSweep()
}

// Reactive returns the deep observed wrapper for target, creating and
// caching it on first use. Reads through the wrapper track, writes trigger,
// nested structural values wrap lazily and nested cells auto-unwrap.
func Reactive(rs *ReactiveSystem, target any) any {
	// Re-wrapping a readonly proxy yields the readonly proxy itself.
	if IsReadonly(target) {
		return target
	}
	return rs.createReactiveObject(target, false, mutableHandlers, mutableCollectionHandlers, rs.reactiveMap)
}

// ShallowReactive wraps only the top level: nested values come back
// unwrapped and nested cells are not unwrapped.
func ShallowReactive(rs *ReactiveSystem, target any) any {
	return rs.createReactiveObject(target, false, shallowReactiveHandlers, shallowCollectionHandlers, rs.shallowReactiveMap)
}

// Readonly returns a deep read-only view. Applied to a reactive wrapper it
// layers over it, so reads still track the underlying deps while writes are
// refused.
func Readonly(rs *ReactiveSystem, target any) any {
	return rs.createReactiveObject(target, true, readonlyHandlers, readonlyCollectionHandlers, rs.readonlyMap)
}

// ShallowReadonly protects only the top level.
func ShallowReadonly(rs *ReactiveSystem, target any) any {
	return rs.createReactiveObject(target, true, shallowReadonlyHandlers, shallowReadonlyCollectionHandlers, rs.shallowReadonlyMap)
}

func (rs *ReactiveSystem) createReactiveObject(
	target any,
	readonly bool,
	baseHandlers *structuralHandlers,
	collectionHandlers *collectionHandlers,
	cache map[any]func() any,
) any {
	if !isObservableTarget(target) {
		rs.warn("value of type %T cannot be made reactive", target)
		return target
	}

	// Already observed: return as-is, except layering readonly over a
	// reactive wrapper, which proceeds with the wrapper as the target.
	if isWrapped(target) && !(readonly && isReactiveFlavor(target)) {
		return target
	}

	if cached := rs.cachedProxy(cache, target); cached != nil {
		return cached
	}

	switch targetFlavorOf(target) {
	case flavorCommon:
		p := &Proxy{rs: rs, target: target, handlers: baseHandlers}
		rs.storeProxy(cache, target, p)
		return p
	case flavorCollection:
		cp := &CollectionProxy{rs: rs, target: target, handlers: collectionHandlers}
		rs.storeProxy(cache, target, cp)
		return cp
	}
	// Marked raw: hand back unchanged.
	return target
}

func isWrapped(v any) bool {
	switch v.(type) {
	case *Proxy, *CollectionProxy:
		return true
	}
	return false
}

// isReactiveFlavor checks the wrapper's own flavor without looking through
// layers; a readonly wrapper is not reactive-flavored even when its target
// is.
func isReactiveFlavor(v any) bool {
	switch p := v.(type) {
	case *Proxy:
		return !p.handlers.readonly && !p.handlers.unwrapOnly
	case *CollectionProxy:
		return !p.handlers.readonly
	}
	return false
}

// IsReactive reports whether v is a tracking wrapper, looking through a
// readonly layer over a reactive wrapper.
func IsReactive(v any) bool {
	switch p := v.(type) {
	case *Proxy:
		if p.handlers.unwrapOnly {
			return false
		}
		if p.handlers.readonly {
			return IsReactive(p.target)
		}
		return true
	case *CollectionProxy:
		if p.handlers.readonly {
			return IsReactive(p.target)
		}
		return true
	}
	return false
}

// IsReadonly reports whether v refuses writes.
func IsReadonly(v any) bool {
	switch p := v.(type) {
	case *Proxy:
		return p.handlers.readonly
	case *CollectionProxy:
		return p.handlers.readonly
	}
	return false
}

// IsProxy reports whether v is any observed structural or collection
// wrapper.
func IsProxy(v any) bool {
	return IsReactive(v) || IsReadonly(v)
}

// ToRaw walks wrapper links to a fixpoint, yielding the underlying target.
func ToRaw(v any) any {
	for {
		switch p := v.(type) {
		case *Proxy:
			v = p.target
		case *CollectionProxy:
			v = p.target
		default:
			return v
		}
	}
}

// MarkRaw opts a target out of observation; the factory returns it
// unchanged from then on.
func MarkRaw(v any) any {
	switch t := v.(type) {
	case *Object:
		t.skip = true
	case *Array:
		t.skip = true
	case *MapCollection:
		t.skip = true
	case *SetCollection:
		t.skip = true
	}
	return v
}
