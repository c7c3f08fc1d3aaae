package reactivity

import mapset "github.com/deckarep/golang-set/v2"

// Dep is the set of effects registered against one (target, key) slot.
// Membership checks go through the set, dispatch iterates the order slice so
// effects fire in registration order. wasTracked/newTracked are the
// re-tracking bitmasks of the effect run algorithm, indexed by recursion
// depth.
type Dep struct {
	set   mapset.Set[*ReactiveEffect]
	order []*ReactiveEffect

	wasTracked uint32
	newTracked uint32
}

func newDep() *Dep {
	return &Dep{set: mapset.NewThreadUnsafeSet[*ReactiveEffect]()}
}

func (d *Dep) add(e *ReactiveEffect) {
	if d.set.Add(e) {
		d.order = append(d.order, e)
	}
}

func (d *Dep) remove(e *ReactiveEffect) {
	if !d.set.Contains(e) {
		return
	}
	d.set.Remove(e)
	for i, x := range d.order {
		if x == e {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *Dep) has(e *ReactiveEffect) bool {
	return d.set.Contains(e)
}

func (d *Dep) len() int {
	return d.set.Cardinality()
}

// snapshot copies the current membership; dispatch must never iterate the
// live slice because running effects mutate deps.
func (d *Dep) snapshot() []*ReactiveEffect {
	out := make([]*ReactiveEffect, len(d.order))
	copy(out, d.order)
	return out
}
