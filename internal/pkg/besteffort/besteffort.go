// Package besteffort runs side effects whose failure must never fail the
// operation that triggered them, such as audit events or queue bookkeeping.
//
// Instead of an empty error branch, callers get a Result they can inspect
// or ignore; failures are always logged.
package besteffort

import (
	"fmt"

	"github.com/ignite/mailguard/internal/pkg/logger"
)

// Result is the outcome of a best-effort side effect.
type Result struct {
	Name string
	Err  error
}

// OK reports whether the side effect succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Do runs fn, recovering panics, and logs a warning on failure.
func Do(name string, fn func() error, fields ...interface{}) (res Result) {
	res.Name = name
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v", p)
			logFailure(res, fields)
		}
	}()
	res.Err = fn()
	if res.Err != nil {
		logFailure(res, fields)
	}
	return res
}

func logFailure(res Result, fields []interface{}) {
	kv := append([]interface{}{"side_effect", res.Name, "error", res.Err}, fields...)
	logger.Warn("best-effort side effect failed", kv...)
}
