package reactivity

// ComputedGetter produces the derivation's value; it receives the previous
// value, zero on the first run.
type ComputedGetter func(oldValue any) any

// ComputedSetter handles writes to a writable derivation.
type ComputedSetter func(value any)

// ComputedRef is a lazy memoized cell backed by an internal effect. A
// source change marks it dirty through the effect's scheduler and
// propagates the invalidation to the cell's own dep; the recompute happens
// on the next read, at most once between two reads no matter how many
// source writes occur.
type ComputedRef struct {
	rs     *ReactiveSystem
	dep    *Dep
	value  any
	dirty  bool
	effect *ReactiveEffect
	setter ComputedSetter
}

func (c *ComputedRef) refMarker() {}

// Computed creates a read-only derivation. Writes warn in debug mode and
// no-op.
func Computed(rs *ReactiveSystem, getter ComputedGetter) *ComputedRef {
	return newComputed(rs, getter, nil)
}

// WritableComputed routes writes to the supplied setter.
func WritableComputed(rs *ReactiveSystem, getter ComputedGetter, setter ComputedSetter) *ComputedRef {
	return newComputed(rs, getter, setter)
}

func newComputed(rs *ReactiveSystem, getter ComputedGetter, setter ComputedSetter) *ComputedRef {
	c := &ComputedRef{
		rs:     rs,
		dep:    newDep(),
		dirty:  true,
		setter: setter,
	}
	c.effect = newReactiveEffect(rs, func() (any, error) {
		return getter(c.value), nil
	})
	c.effect.scheduler = func() {
		if !c.dirty {
			c.dirty = true
			rs.triggerRef(c.dep, c, nil, nil)
		}
	}
	recordEffectScope(rs, c.effect, nil)
	return c
}

func (c *ComputedRef) Value() any {
	c.rs.trackRef(c.dep, c)
	if c.dirty {
		c.dirty = false
		v, err := c.effect.run()
		if err != nil {
			c.rs.handleError(err)
		}
		c.value = v
	}
	return c.value
}

func (c *ComputedRef) SetValue(value any) {
	if c.setter == nil {
		c.rs.warn("write operation failed: computed value is readonly")
		return
	}
	c.setter(value)
}

// Stop detaches the derivation from its sources; source writes no longer
// invalidate it and reads keep returning the last computed value. A
// derivation stopped while dirty computes once more, untracked, on its
// next read.
func (c *ComputedRef) Stop() {
	c.effect.stop()
}
