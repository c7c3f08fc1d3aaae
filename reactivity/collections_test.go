package reactivity_test

import (
	"testing"

	"github.com/delaneyj/proxyparty/reactivity"
	"github.com/stretchr/testify/assert"
)

// should observe map gets and sets
func TestMapGetSet(t *testing.T) {
	rs := newSystem(t)
	m := reactivity.Reactive(rs, reactivity.NewMapCollection()).(*reactivity.CollectionProxy)

	log := []any{}
	reactivity.Effect(rs, func() error {
		log = append(log, m.Get("k"))
		return nil
	})
	assert.Equal(t, []any{nil}, log)

	m.Set("k", 1)
	assert.Equal(t, []any{nil, 1}, log)

	m.Set("k", 1)
	assert.Equal(t, []any{nil, 1}, log)

	m.Set("k", 2)
	assert.Equal(t, []any{nil, 1, 2}, log)
}

// should observe size across add, delete and clear
func TestMapSizeTracking(t *testing.T) {
	rs := newSystem(t)
	m := reactivity.Reactive(rs, reactivity.NewMapCollection()).(*reactivity.CollectionProxy)

	sizes := []any{}
	reactivity.Effect(rs, func() error {
		sizes = append(sizes, m.Size())
		return nil
	})
	assert.Equal(t, []any{0}, sizes)

	m.Set("a", 1)
	m.Set("b", 2)
	assert.Equal(t, []any{0, 1, 2}, sizes)

	// a value write on a keyed map fires iteration too; the size itself
	// is unchanged
	m.Set("a", 10)
	assert.Equal(t, []any{0, 1, 2, 2}, sizes)

	m.Delete("a")
	assert.Equal(t, []any{0, 1, 2, 2, 1}, sizes)

	m.Clear()
	assert.Equal(t, []any{0, 1, 2, 2, 1, 0}, sizes)

	// clearing an already-empty collection fires nothing
	m.Clear()
	assert.Equal(t, []any{0, 1, 2, 2, 1, 0}, sizes)
}

// should re-run key iterators only when the key set changes
func TestMapKeyIteration(t *testing.T) {
	rs := newSystem(t)
	m := reactivity.Reactive(rs, reactivity.NewMapCollection()).(*reactivity.CollectionProxy)
	m.Set("a", 1)

	keyRuns, entryRuns := 0, 0
	reactivity.Effect(rs, func() error {
		keyRuns++
		_ = m.Keys()
		return nil
	})
	reactivity.Effect(rs, func() error {
		entryRuns++
		_ = m.Entries()
		return nil
	})
	assert.Equal(t, 1, keyRuns)
	assert.Equal(t, 1, entryRuns)

	// value-only write: entries observe it, key iteration does not
	m.Set("a", 2)
	assert.Equal(t, 1, keyRuns)
	assert.Equal(t, 2, entryRuns)

	m.Set("b", 1)
	assert.Equal(t, 2, keyRuns)
	assert.Equal(t, 3, entryRuns)

	m.Delete("b")
	assert.Equal(t, 3, keyRuns)
	assert.Equal(t, 4, entryRuns)
}

// should visit entries with wrapped values in ForEach
func TestMapForEachWraps(t *testing.T) {
	rs := newSystem(t)
	inner := reactivity.NewObject()
	raw := reactivity.NewMapCollection()
	raw.Set("o", inner)
	m := reactivity.Reactive(rs, raw).(*reactivity.CollectionProxy)

	m.ForEach(func(value, key any) {
		assert.Equal(t, "o", key)
		assert.True(t, reactivity.IsReactive(value))
	})
}

// should find entries stored under raw keys when probed with wrapped keys
func TestMapRawVsWrappedKeys(t *testing.T) {
	rs := newSystem(t)
	keyTarget := reactivity.NewObject()
	raw := reactivity.NewMapCollection()
	raw.Set(keyTarget, "v")
	m := reactivity.Reactive(rs, raw).(*reactivity.CollectionProxy)

	wrappedKey := reactivity.Reactive(rs, keyTarget)
	assert.Equal(t, "v", m.Get(wrappedKey))
	assert.True(t, m.Has(wrappedKey))
	assert.True(t, m.Delete(wrappedKey))
	assert.Equal(t, 0, reactivity.ToRaw(m).(*reactivity.MapCollection).Len())
}

// should observe set membership
func TestSetCollection(t *testing.T) {
	rs := newSystem(t)
	s := reactivity.Reactive(rs, reactivity.NewSetCollection()).(*reactivity.CollectionProxy)

	log := []any{}
	reactivity.Effect(rs, func() error {
		log = append(log, s.Has("x"))
		return nil
	})
	assert.Equal(t, []any{false}, log)

	s.Add("x")
	assert.Equal(t, []any{false, true}, log)

	// adding an existing element fires nothing
	s.Add("x")
	assert.Equal(t, []any{false, true}, log)

	s.Delete("x")
	assert.Equal(t, []any{false, true, false}, log)
}

// should observe set iteration
func TestSetIteration(t *testing.T) {
	rs := newSystem(t)
	s := reactivity.Reactive(rs, reactivity.NewSetCollection("a")).(*reactivity.CollectionProxy)

	var seen []any
	runs := 0
	reactivity.Effect(rs, func() error {
		runs++
		seen = s.Values()
		return nil
	})
	assert.Equal(t, 1, runs)
	assert.Equal(t, []any{"a"}, seen)

	s.Add("b")
	assert.Equal(t, 2, runs)
	assert.Equal(t, []any{"a", "b"}, seen)

	s.Clear()
	assert.Equal(t, 3, runs)
	assert.Empty(t, seen)
}

// should refuse writes on readonly collections, warning in debug mode
func TestReadonlyCollection(t *testing.T) {
	rs := newSystem(t)
	var warnings []string
	rs.SetWarnHandler(func(msg string) { warnings = append(warnings, msg) })

	raw := reactivity.NewMapCollection()
	raw.Set("k", 1)
	ro := reactivity.Readonly(rs, raw).(*reactivity.CollectionProxy)

	ro.Set("k", 2)
	ro.Delete("k")
	ro.Clear()
	assert.Equal(t, 1, ro.Get("k"))
	assert.Equal(t, 1, ro.Size())
	assert.Len(t, warnings, 3)
}

// should wrap nested values on read through a deep collection wrapper
func TestCollectionDeepWrapping(t *testing.T) {
	rs := newSystem(t)
	inner := reactivity.NewObject()
	raw := reactivity.NewMapCollection()
	raw.Set("o", inner)
	m := reactivity.Reactive(rs, raw).(*reactivity.CollectionProxy)

	got := m.Get("o")
	assert.True(t, reactivity.IsReactive(got))
	assert.Same(t, inner, reactivity.ToRaw(got).(*reactivity.Object))

	// shallow flavor returns values untouched
	sh := reactivity.ShallowReactive(rs, reactivity.NewMapCollection()).(*reactivity.CollectionProxy)
	sh.Set("o", inner)
	assert.Same(t, inner, sh.Get("o").(*reactivity.Object))
}

// should unwrap observed values stored into deep collections
func TestCollectionStoresRaw(t *testing.T) {
	rs := newSystem(t)
	inner := reactivity.NewObject()
	wrapped := reactivity.Reactive(rs, inner)

	m := reactivity.Reactive(rs, reactivity.NewMapCollection()).(*reactivity.CollectionProxy)
	m.Set("o", wrapped)
	assert.Same(t, inner, reactivity.ToRaw(m).(*reactivity.MapCollection).Get("o").(*reactivity.Object))
}
