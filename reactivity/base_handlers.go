package reactivity

import "strconv"

// Proxy is the observed wrapper for structural targets (Object and Array).
// Every operation dispatches through a handler table; the four
// reactive/readonly × deep/shallow flavors plus the unwrap-only table used
// by ProxyRefs are the closed set of variants.
type Proxy struct {
	rs       *ReactiveSystem
	target   any // *Object, *Array, or an inner *Proxy for readonly-over-reactive
	handlers *structuralHandlers
}

type structuralHandlers struct {
	readonly   bool
	shallow    bool
	unwrapOnly bool // ProxyRefs table: unwrap cells, never track or trigger
}

var (
	mutableHandlers         = &structuralHandlers{}
	readonlyHandlers        = &structuralHandlers{readonly: true}
	shallowReactiveHandlers = &structuralHandlers{shallow: true}
	shallowReadonlyHandlers = &structuralHandlers{readonly: true, shallow: true}
	shallowUnwrapHandlers   = &structuralHandlers{shallow: true, unwrapOnly: true}
)

// Raw dispatch over the possible targets. A *Proxy target occurs when a
// readonly view is layered over a reactive proxy; reads then flow through
// the inner proxy so the underlying deps still track.

func rawGet(target, key any) any {
	switch t := target.(type) {
	case *Object:
		if s, ok := key.(string); ok {
			return t.Get(s)
		}
	case *Array:
		if key == LengthKey {
			return t.Len()
		}
		if idx, ok := toIndex(key); ok {
			return t.Get(idx)
		}
	case *Proxy:
		return t.Get(key)
	}
	return nil
}

func rawSet(target, key, value any) bool {
	switch t := target.(type) {
	case *Object:
		if s, ok := key.(string); ok {
			t.Set(s, value)
			return true
		}
	case *Array:
		if key == LengthKey {
			if n, ok := toInt(value); ok {
				t.SetLen(n)
				return true
			}
			return false
		}
		if idx, ok := toIndex(key); ok {
			t.Set(idx, value)
			return true
		}
	case *Proxy:
		return t.Set(key, value)
	}
	return false
}

func rawHas(target, key any) bool {
	switch t := target.(type) {
	case *Object:
		if s, ok := key.(string); ok {
			return t.Has(s)
		}
	case *Array:
		if key == LengthKey {
			return true
		}
		if idx, ok := toIndex(key); ok {
			return idx < t.Len()
		}
	case *Proxy:
		return t.Has(key)
	}
	return false
}

func rawDelete(target, key any) bool {
	switch t := target.(type) {
	case *Object:
		if s, ok := key.(string); ok {
			return t.Delete(s)
		}
	case *Array:
		if idx, ok := toIndex(key); ok {
			return t.Delete(idx)
		}
	case *Proxy:
		return t.Delete(key)
	}
	return false
}

func rawOwnKeys(target any) []any {
	switch t := target.(type) {
	case *Object:
		keys := t.Keys()
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, k)
		}
		return out
	case *Array:
		n := t.Len()
		out := make([]any, 0, n+1)
		for i := 0; i < n; i++ {
			out = append(out, strconv.Itoa(i))
		}
		return append(out, LengthKey)
	case *Proxy:
		return t.Keys()
	}
	return nil
}

func (p *Proxy) isArray() (*Array, bool) {
	a, ok := ToRaw(p.target).(*Array)
	return a, ok
}

// Get reads a slot. Meta symbols answer flavor queries without tracking;
// everything else tracks (unless readonly), auto-unwraps nested cells on
// non-index keys and lazily wraps nested structural values.
func (p *Proxy) Get(key any) any {
	return p.handlers.get(p, normalizeKey(key))
}

func (h *structuralHandlers) get(p *Proxy, key any) any {
	switch key {
	case SymIsReactive:
		return !h.readonly && !h.unwrapOnly
	case SymIsReadonly:
		return h.readonly
	case SymRaw:
		// Only the proxy registered for this flavor may unwrap; a foreign
		// proxy over the same target answers nil.
		if p.rs.cachedProxy(h.flavorCache(p.rs), p.target) == p {
			return p.target
		}
		return nil
	}

	res := rawGet(p.target, key)

	if isNonTrackableKey(key) {
		return res
	}

	if h.unwrapOnly {
		return Unref(res)
	}

	if !h.readonly {
		p.rs.Track(p.target, TrackOpGet, key)
	}

	if h.shallow {
		return res
	}

	if r, ok := asRefCell(res); ok {
		_, isArr := p.isArray()
		if !isArr || !isIntegerKey(key) {
			return r.Value()
		}
		return res
	}

	if isObservableTarget(res) {
		if h.readonly {
			return Readonly(p.rs, res)
		}
		return Reactive(p.rs, res)
	}
	return res
}

// Set writes a slot, forwarding into an existing cell when one occupies the
// slot, and triggers ADD or SET as appropriate. Writes on readonly flavors
// are refused: a debug warning, then a silent success.
func (p *Proxy) Set(key, value any) bool {
	return p.handlers.set(p, normalizeKey(key), value)
}

func (h *structuralHandlers) set(p *Proxy, key, value any) bool {
	if h.readonly {
		p.rs.warn("set operation on key %v failed: target is readonly", key)
		return true
	}

	oldValue := rawGet(p.target, key)

	if h.unwrapOnly {
		if r, ok := asRefCell(oldValue); ok {
			if _, isNew := asRefCell(value); !isNew {
				r.SetValue(value)
				return true
			}
		}
		return rawSet(p.target, key, value)
	}

	if !h.shallow {
		value = ToRaw(value)
		if _, isArr := p.target.(*Array); !isArr {
			if r, ok := asRefCell(oldValue); ok {
				// A slot holding a cell forwards through the cell's
				// setter; a cell value forwards its inner value so the
				// original cell observes the write.
				r.SetValue(Unref(value))
				return true
			}
		}
	}

	hadKey := false
	if arr, ok := p.target.(*Array); ok && isIntegerKey(key) {
		idx, _ := toIndex(key)
		hadKey = idx < arr.Len()
	} else {
		hadKey = rawHas(p.target, key)
	}

	result := rawSet(p.target, key, value)
	if !result {
		return false
	}

	if !hadKey {
		p.rs.trigger(ToRaw(p.target), TriggerOpAdd, key, value, nil, nil)
	} else if hasChanged(value, oldValue) {
		p.rs.trigger(ToRaw(p.target), TriggerOpSet, key, value, oldValue, nil)
	}
	return result
}

// Delete removes a slot and triggers DELETE when something was removed.
func (p *Proxy) Delete(key any) bool {
	return p.handlers.deleteProperty(p, normalizeKey(key))
}

func (h *structuralHandlers) deleteProperty(p *Proxy, key any) bool {
	if h.readonly {
		p.rs.warn("delete operation on key %v failed: target is readonly", key)
		return true
	}
	hadKey := rawHas(p.target, key)
	oldValue := rawGet(p.target, key)
	result := rawDelete(p.target, key)
	if result && hadKey {
		p.rs.trigger(ToRaw(p.target), TriggerOpDelete, key, nil, oldValue, nil)
	}
	return result
}

// Has answers membership, tracking HAS unless the key is non-trackable.
func (p *Proxy) Has(key any) bool {
	return p.handlers.has(p, normalizeKey(key))
}

func (h *structuralHandlers) has(p *Proxy, key any) bool {
	result := rawHas(p.target, key)
	if !h.readonly && !h.unwrapOnly && !isNonTrackableKey(key) {
		p.rs.Track(p.target, TrackOpHas, key)
	}
	return result
}

// Keys lists own keys, tracking iteration: the length slot for arrays, the
// iterate sentinel for objects.
func (p *Proxy) Keys() []any {
	return p.handlers.ownKeys(p)
}

func (h *structuralHandlers) ownKeys(p *Proxy) []any {
	if !h.readonly && !h.unwrapOnly {
		if _, ok := p.target.(*Array); ok {
			p.rs.Track(p.target, TrackOpIterate, LengthKey)
		} else {
			p.rs.Track(p.target, TrackOpIterate, iterateKey)
		}
	}
	return rawOwnKeys(p.target)
}

// Len reads the array length reactively; for objects it is the tracked own
// key count.
func (p *Proxy) Len() int {
	if _, ok := p.isArray(); ok {
		n, _ := toInt(p.Get(LengthKey))
		return n
	}
	return len(p.Keys())
}

// Identity search family. Each index is force-tracked so the effect re-runs
// on any element mutation; a miss is retried with the argument unwrapped to
// raw so searching for an observed wrapper finds its target.

func (p *Proxy) IndexOf(value any) int {
	return p.identitySearch(value, false)
}

func (p *Proxy) LastIndexOf(value any) int {
	return p.identitySearch(value, true)
}

func (p *Proxy) Includes(value any) bool {
	return p.identitySearch(value, false) >= 0
}

func (p *Proxy) identitySearch(value any, last bool) int {
	arr, ok := p.isArray()
	if !ok {
		p.rs.warn("identity search on non-array target %T", p.target)
		return -1
	}
	n := arr.Len()
	if !p.handlers.readonly && !p.handlers.unwrapOnly {
		for i := 0; i < n; i++ {
			p.rs.Track(arr, TrackOpGet, strconv.Itoa(i))
		}
	}
	if idx := searchRaw(arr, value, last); idx >= 0 {
		return idx
	}
	return searchRaw(arr, ToRaw(value), last)
}

func searchRaw(arr *Array, value any, last bool) int {
	n := arr.Len()
	if last {
		for i := n - 1; i >= 0; i-- {
			if sameValueZero(arr.Get(i), value) {
				return i
			}
		}
		return -1
	}
	for i := 0; i < n; i++ {
		if sameValueZero(arr.Get(i), value) {
			return i
		}
	}
	return -1
}

// Length-mutating family. Tracking is paused for the duration so the
// mutator's own length reads do not register into the calling effect and
// re-enter it; triggers still fire.

func (p *Proxy) Push(values ...any) int {
	arr, ok := p.isArray()
	if !ok {
		p.rs.warn("push on non-array target %T", p.target)
		return 0
	}
	p.rs.PauseTracking()
	defer p.rs.ResetTracking()
	for _, v := range values {
		p.Set(strconv.Itoa(arr.Len()), v)
	}
	return arr.Len()
}

func (p *Proxy) Pop() any {
	arr, ok := p.isArray()
	if !ok {
		p.rs.warn("pop on non-array target %T", p.target)
		return nil
	}
	n := arr.Len()
	if n == 0 {
		return nil
	}
	p.rs.PauseTracking()
	defer p.rs.ResetTracking()
	v := arr.Get(n - 1)
	p.Delete(strconv.Itoa(n - 1))
	p.Set(LengthKey, n-1)
	return v
}

func (p *Proxy) Shift() any {
	arr, ok := p.isArray()
	if !ok {
		p.rs.warn("shift on non-array target %T", p.target)
		return nil
	}
	n := arr.Len()
	if n == 0 {
		return nil
	}
	p.rs.PauseTracking()
	defer p.rs.ResetTracking()
	first := arr.Get(0)
	for i := 1; i < n; i++ {
		p.Set(strconv.Itoa(i-1), arr.Get(i))
	}
	p.Delete(strconv.Itoa(n - 1))
	p.Set(LengthKey, n-1)
	return first
}

func (p *Proxy) Unshift(values ...any) int {
	arr, ok := p.isArray()
	if !ok {
		p.rs.warn("unshift on non-array target %T", p.target)
		return 0
	}
	k := len(values)
	if k == 0 {
		return arr.Len()
	}
	n := arr.Len()
	p.rs.PauseTracking()
	defer p.rs.ResetTracking()
	for i := n - 1; i >= 0; i-- {
		p.Set(strconv.Itoa(i+k), arr.Get(i))
	}
	for i, v := range values {
		p.Set(strconv.Itoa(i), v)
	}
	return arr.Len()
}

func (p *Proxy) Splice(start, deleteCount int, items ...any) []any {
	arr, ok := p.isArray()
	if !ok {
		p.rs.warn("splice on non-array target %T", p.target)
		return nil
	}
	n := arr.Len()
	if start < 0 {
		start = n + start
		if start < 0 {
			start = 0
		}
	}
	if start > n {
		start = n
	}
	if deleteCount < 0 {
		deleteCount = 0
	}
	if deleteCount > n-start {
		deleteCount = n - start
	}

	removed := make([]any, deleteCount)
	for i := 0; i < deleteCount; i++ {
		removed[i] = arr.Get(start + i)
	}

	p.rs.PauseTracking()
	defer p.rs.ResetTracking()

	shift := len(items) - deleteCount
	switch {
	case shift < 0:
		for i := start + deleteCount; i < n; i++ {
			p.Set(strconv.Itoa(i+shift), arr.Get(i))
		}
	case shift > 0:
		for i := n - 1; i >= start+deleteCount; i-- {
			p.Set(strconv.Itoa(i+shift), arr.Get(i))
		}
	}
	for i, it := range items {
		p.Set(strconv.Itoa(start+i), it)
	}
	if shift < 0 {
		p.Set(LengthKey, n+shift)
	}
	return removed
}
