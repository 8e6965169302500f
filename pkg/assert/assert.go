package assert

import "sync/atomic"

var constructing int32

// NotCircular guards Default* singleton constructors against re-entrant init loops.
func NotCircular() {
	if atomic.LoadInt32(&constructing) > 32 {
		panic("circular singleton construction detected")
	}
	atomic.AddInt32(&constructing, 1)
	defer atomic.AddInt32(&constructing, -1)
}

// NotNil panics when a required dependency is missing.
func NotNil(v interface{}) {
	if v == nil {
		panic("required value is nil")
	}
}
