package reactivity

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
)

// Symbol is a key with pointer identity, the analog of a language symbol.
// Two symbols with the same description are still distinct keys; the id is
// derived from the description and plays no part in key equality.
type Symbol struct {
	desc    string
	id      uint64
	builtin bool
}

func NewSymbol(desc string) *Symbol {
	return &Symbol{desc: desc, id: xxhash.Sum64String(desc)}
}

func newBuiltinSymbol(desc string) *Symbol {
	s := NewSymbol(desc)
	s.builtin = true
	return s
}

func (s *Symbol) String() string {
	return fmt.Sprintf("Symbol(%s)", s.desc)
}

// Reserved meta keys. Reading one through an observed wrapper is a pure
// meta-query and never tracks.
var (
	SymIsReactive = newBuiltinSymbol("__v_isReactive")
	SymIsReadonly = newBuiltinSymbol("__v_isReadonly")
	SymRaw        = newBuiltinSymbol("__v_raw")
	SymSkip       = newBuiltinSymbol("__v_skip")

	iterateKey       = newBuiltinSymbol("iterate")
	mapKeyIterateKey = newBuiltinSymbol("Map keys iterate")
)

// LengthKey addresses the length slot of array targets.
const LengthKey = "length"

// Meta keys that never participate in tracking even when read through an
// observed wrapper.
var nonTrackableKeys = mapset.NewThreadUnsafeSet("__proto__")

func isNonTrackableKey(key any) bool {
	switch k := key.(type) {
	case *Symbol:
		return k.builtin
	case string:
		return nonTrackableKeys.Contains(k)
	}
	return false
}

// normalizeKey maps the convenience integer keys onto the canonical
// integer-string form used by the registry.
func normalizeKey(key any) any {
	switch k := key.(type) {
	case int:
		return strconv.Itoa(k)
	case int64:
		return strconv.FormatInt(k, 10)
	case uint:
		return strconv.FormatUint(uint64(k), 10)
	}
	return key
}

// isIntegerKey reports whether key is a canonical non-negative
// integer-string, i.e. an array index.
func isIntegerKey(key any) bool {
	s, ok := key.(string)
	if !ok || s == "" {
		return false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return false
	}
	return strconv.Itoa(n) == s
}

func toIndex(key any) (int, bool) {
	s, ok := key.(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || strconv.Itoa(n) != s {
		return 0, false
	}
	return n, true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// hasChanged compares with same-value-zero semantics: NaN equals itself,
// values of uncomparable dynamic types always count as changed.
func hasChanged(value, oldValue any) bool {
	if f, ok := value.(float64); ok {
		if g, ok := oldValue.(float64); ok {
			if math.IsNaN(f) && math.IsNaN(g) {
				return false
			}
			return f != g
		}
	}
	if !comparableValue(value) || !comparableValue(oldValue) {
		return true
	}
	return value != oldValue
}

func comparableValue(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}

// sameValueZero is the positive form used by the array identity search.
func sameValueZero(a, b any) bool {
	return !hasChanged(a, b)
}
