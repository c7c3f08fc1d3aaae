package reactivity_test

import (
	"testing"

	"github.com/delaneyj/proxyparty/reactivity"
	"github.com/stretchr/testify/assert"
)

// should stop every effect recorded in the scope
func TestScopeBulkStop(t *testing.T) {
	rs := newSystem(t)
	n := reactivity.Ref(rs, 0)

	runs := 0
	scope := reactivity.NewEffectScope(rs, false)
	scope.Run(func() error {
		reactivity.Effect(rs, func() error {
			runs++
			_ = n.Value()
			return nil
		})
		reactivity.Effect(rs, func() error {
			runs++
			_ = n.Value()
			return nil
		})
		return nil
	})
	assert.Equal(t, 2, runs)

	n.SetValue(1)
	assert.Equal(t, 4, runs)

	scope.Stop()
	assert.False(t, scope.Active())
	n.SetValue(2)
	assert.Equal(t, 4, runs)

	// stop is idempotent
	scope.Stop()
}

// should stop nested scopes with their parent
func TestScopeNesting(t *testing.T) {
	rs := newSystem(t)
	n := reactivity.Ref(rs, 0)

	runs := 0
	parent := reactivity.NewEffectScope(rs, false)
	parent.Run(func() error {
		child := reactivity.NewEffectScope(rs, false)
		return child.Run(func() error {
			reactivity.Effect(rs, func() error {
				runs++
				_ = n.Value()
				return nil
			})
			return nil
		})
	})
	assert.Equal(t, 1, runs)

	parent.Stop()
	n.SetValue(1)
	assert.Equal(t, 1, runs)
}

// should keep detached scopes alive past their parent
func TestScopeDetached(t *testing.T) {
	rs := newSystem(t)
	n := reactivity.Ref(rs, 0)

	runs := 0
	var detached *reactivity.EffectScope
	parent := reactivity.NewEffectScope(rs, false)
	parent.Run(func() error {
		detached = reactivity.NewEffectScope(rs, true)
		return detached.Run(func() error {
			reactivity.Effect(rs, func() error {
				runs++
				_ = n.Value()
				return nil
			})
			return nil
		})
	})

	parent.Stop()
	n.SetValue(1)
	assert.Equal(t, 2, runs)

	detached.Stop()
	n.SetValue(2)
	assert.Equal(t, 2, runs)
}

// should record an effect in an explicit scope regardless of the entered one
func TestScopeExplicitOption(t *testing.T) {
	rs := newSystem(t)
	n := reactivity.Ref(rs, 0)

	target := reactivity.NewEffectScope(rs, false)
	entered := reactivity.NewEffectScope(rs, false)

	runs := 0
	entered.Run(func() error {
		_, err := reactivity.Effect(rs, func() error {
			runs++
			_ = n.Value()
			return nil
		}, reactivity.EffectOptions{Scope: target})
		return err
	})

	// stopping the entered scope leaves the effect alive
	entered.Stop()
	n.SetValue(1)
	assert.Equal(t, 2, runs)

	target.Stop()
	n.SetValue(2)
	assert.Equal(t, 2, runs)
}

// should run dispose callbacks on stop
func TestOnScopeDispose(t *testing.T) {
	rs := newSystem(t)

	disposed := []string{}
	scope := reactivity.NewEffectScope(rs, false)
	scope.Run(func() error {
		reactivity.OnScopeDispose(rs, func() { disposed = append(disposed, "first") })
		reactivity.OnScopeDispose(rs, func() { disposed = append(disposed, "second") })
		return nil
	})
	assert.Empty(t, disposed)

	scope.Stop()
	assert.Equal(t, []string{"first", "second"}, disposed)
}

// should warn when running an inactive scope
func TestScopeRunAfterStop(t *testing.T) {
	rs := newSystem(t)
	var warnings []string
	rs.SetWarnHandler(func(msg string) { warnings = append(warnings, msg) })

	scope := reactivity.NewEffectScope(rs, false)
	scope.Stop()
	ran := false
	scope.Run(func() error {
		ran = true
		return nil
	})
	assert.False(t, ran)
	assert.Len(t, warnings, 1)
}
