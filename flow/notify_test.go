package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeWeakChild fabricates a weakChild whose resolve never succeeds,
// standing in for a child that has already been collected, without
// depending on the garbage collector's timing.
func fakeWeakChild() weakChild {
	return weakChild{resolve: func() (AnyNode, bool) { return nil, false }}
}

// TestNotifyCompactsOnlyOnOutermostGuard exercises the decision recorded
// in DESIGN.md for notify's garbage compaction: a node only compacts its
// expired child slots when the notify frame that saw the garbage is the
// outermost one for that node. A nested frame (notifying already true on
// entry, as happens when an observer re-enters notify on the same node)
// must leave the garbage for the outer frame to clean up.
func TestNotifyCompactsOnlyOnOutermostGuard(t *testing.T) {
	t.Run("outermost frame compacts", func(t *testing.T) {
		n := newRootNode[int](kindState, 1, nil)
		child := newDerivedNode[int](kindInner, []AnyNode{n}, func() int { return n.current })
		n.children = []weakChild{fakeWeakChild(), newWeakChild(child), fakeWeakChild()}
		n.needsNotify = true

		n.notify()

		assert.Len(t, n.children, 1, "expired slots must be compacted by the outermost frame")
	})

	t.Run("nested frame defers compaction", func(t *testing.T) {
		n := newRootNode[int](kindState, 1, nil)
		n.children = []weakChild{fakeWeakChild()}
		n.needsNotify = true
		n.notifying = true // simulates an observer re-entering notify on this node

		n.notify()

		assert.Len(t, n.children, 1, "a nested frame must not compact; the outer frame owns that")
	})
}

func TestNotifyIsIdempotentAfterCommit(t *testing.T) {
	n := newRootNode[int](kindState, 1, nil)
	fired := 0
	n.observers.Connect(func(int) { fired++ })

	n.needsNotify = true
	n.notify()
	n.notify()
	n.notify()

	assert.Equal(t, 1, fired)
}
