package reactivity

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// WarnFunc receives debug warnings. A nil handler (the default) is release
// mode: misuse like writing to a readonly proxy silently succeeds, exactly
// as specified, and the engine spends nothing on message formatting.
type WarnFunc func(msg string)

// SetWarnHandler switches the system into debug mode. Each distinct message
// is delivered once; repeats are dropped by message hash so a warning inside
// a hot effect does not flood the handler.
func (rs *ReactiveSystem) SetWarnHandler(fn WarnFunc) {
	rs.warnFn = fn
}

func (rs *ReactiveSystem) debug() bool {
	return rs.warnFn != nil
}

func (rs *ReactiveSystem) warn(format string, args ...any) {
	if rs.warnFn == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	h := xxhash.Sum64String(msg)
	if _, seen := rs.warned[h]; seen {
		return
	}
	rs.warned[h] = struct{}{}
	rs.warnFn(msg)
}
