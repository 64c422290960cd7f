package flow

import "weak"

// weakChild is a type-erased weak reference to a child node. It lets a
// node's children slice hold children of differing value types without
// the parent needing to know those types, while still letting the GC
// collect a child the moment no strong reference remains anywhere else.
//
// This is the idiomatic current-Go rendering of "A owns B; B may refer to
// A only if A still exists": the standard library's weak package is a
// better fit than any third-party container, since it is integrated with
// the garbage collector itself.
type weakChild struct {
	resolve func() (AnyNode, bool)
}

// newWeakChild wraps a concrete child node pointer behind a weak
// reference usable from any parent's children slice regardless of the
// child's value type.
func newWeakChild[T any](child *node[T]) weakChild {
	ptr := weak.Make(child)
	return weakChild{
		resolve: func() (AnyNode, bool) {
			v := ptr.Value()
			if v == nil {
				return nil, false
			}
			return v, true
		},
	}
}
