package flow

import "reflect"

// node is the generic value cell shared by every node kind. Kind-specific
// behavior (how current is produced, whether sendUp is legal) is carried
// by closures captured at construction time rather than by embedding a
// kind-specific struct, so that recompute/refresh can stay single dispatch
// methods switching on kindTag, and sendUp only checks whether sendUpFn is
// set.
type node[T any] struct {
	kindTag kind

	current T
	last    T

	needsSendDown bool
	needsNotify   bool
	notifying     bool

	parents  []AnyNode
	children []weakChild
	sched    *rankBucket

	observers Multicast[T]

	// scheduled marks this node as already present in some rankBucket's
	// nodes list for the traversal currently in progress; it is the
	// per-node list-membership hook.
	scheduled bool

	// recomputeFn produces a fresh current value for sensor/inner/cursor
	// nodes. It is nil for state roots, whose current is only ever
	// written via sendUp.
	recomputeFn func() T

	// sendUpFn implements the upward write for state and cursor nodes.
	// nil for sensor and plain reader nodes, which have no sendUp.
	sendUpFn func(T)
}

func newRootNode[T any](k kind, initial T, recomputeFn func() T) *node[T] {
	return &node[T]{
		kindTag:     k,
		current:     initial,
		last:        initial,
		sched:       rootBucket(),
		recomputeFn: recomputeFn,
	}
}

// newDerivedNode constructs an inner/cursor node without running its
// transform: current and last start at T's zero value, matching "values
// update only during a commit" — the first send-down or an explicit
// Refresh materializes the real value. Constructing a node is therefore
// never itself a trigger for user-supplied transform code.
func newDerivedNode[T any](k kind, parents []AnyNode, recomputeFn func() T) *node[T] {
	return &node[T]{
		kindTag:     k,
		parents:     parents,
		sched:       nextRank(parents),
		recomputeFn: recomputeFn,
	}
}

// underlying lets the New* constructors and traversal helpers recover the
// concrete node pointer behind a Node[T] value; it is the mechanism that
// seals Node[T] to this package's own wrapper types.
func (n *node[T]) underlying() *node[T] { return n }

func (n *node[T]) Current() T { return n.current }
func (n *node[T]) Last() T    { return n.last }
func (n *node[T]) Rank() int  { return n.sched.rank }

func (n *node[T]) Observers() *Multicast[T] { return &n.observers }

// Pending reports the node's two commit-lifecycle flags. Once a commit has
// carried every pending write through, both are false; a SendUp or Refresh
// that no commit has carried yet leaves needsSendDown set. This exists for introspection
// tooling such as cmd/flowdump, not for engine logic.
func (n *node[T]) Pending() (needsSendDown, needsNotify bool) {
	return n.needsSendDown, n.needsNotify
}

func (n *node[T]) bucket() *rankBucket { return n.sched }

func (n *node[T]) isScheduled() bool   { return n.scheduled }
func (n *node[T]) setScheduled(v bool) { n.scheduled = v }

// pushDown is the sole entry point that sets current. It compares against
// the existing current with reflect.DeepEqual, which handles ordinary
// comparable values and compares slices and maps element by element; a
// non-nil func value never compares equal, so it is always treated as
// changed.
func (n *node[T]) pushDown(v T) {
	if !reflect.DeepEqual(v, n.current) {
		n.current = v
		n.needsSendDown = true
	}
}

// recompute applies the node's own transform. It is a no-op for state
// roots, whose current is only ever set by sendUp. Sensor roots resample
// their callback here too: a sensor reevaluates on every send-down, the
// same as an inner or cursor node recomputing from its parents.
func (n *node[T]) recompute() {
	switch n.kindTag {
	case kindState:
		return
	case kindSensor, kindInner, kindCursor:
		n.pushDown(n.recomputeFn())
	}
}

// refresh recursively refreshes parents (a no-op for roots) then
// recomputes, materializing a value outside of a commit.
func (n *node[T]) refresh() {
	switch n.kindTag {
	case kindState:
		return
	case kindSensor:
		n.pushDown(n.recomputeFn())
	case kindInner, kindCursor:
		for _, p := range n.parents {
			p.refresh()
		}
		n.pushDown(n.recomputeFn())
	}
}

// sendDownDFS is phase 1's depth-first form: it does not deduplicate
// diamond-converged descendants, so a node reachable via two paths
// recomputes once per path. See sendDownTopo for the dedup-safe form.
func (n *node[T]) sendDownDFS() {
	n.recompute()
	if !n.needsSendDown {
		return
	}
	n.last = n.current
	n.needsSendDown = false
	n.needsNotify = true
	n.forEachLiveChild(func(c AnyNode) {
		c.sendDownDFS()
	})
}

// sendDownTopo is phase 1's topological form: children are routed through
// scheduleOrSendDown instead of being visited immediately, which lets the
// caller's topoTraversal coalesce multi-parent children into a single
// visit once all of their parents have settled.
func (n *node[T]) sendDownTopo(t *topoTraversal) {
	n.recompute()
	if !n.needsSendDown {
		return
	}
	n.last = n.current
	n.needsSendDown = false
	n.needsNotify = true
	n.forEachLiveChild(func(c AnyNode) {
		c.scheduleOrSendDown(t)
	})
}

// scheduleOrSendDown is the decision point that makes diamond coalescing
// work: a node with at most one parent cannot be reached twice in one
// commit, so visiting it immediately is safe and cheaper; a node with
// multiple parents is handed to the traversal, which visits it exactly
// once, after every parent has already sent down.
func (n *node[T]) scheduleOrSendDown(t *topoTraversal) {
	if len(n.parents) <= 1 {
		n.sendDownTopo(t)
		return
	}
	t.schedule(n)
}

// notify is phase 2: idempotent, recursive observer delivery over a
// settled graph. The notifying flag is a re-entrancy guard rather than a
// concurrency lock — it exists because an observer callback may itself
// trigger reads or new connections on this same node while delivery for
// an ancestor is still unwinding.
func (n *node[T]) notify() {
	if !n.needsNotify || n.needsSendDown {
		return
	}
	n.needsNotify = false

	wasNotifying := n.notifying
	n.notifying = true

	n.observers.emit(n.last)

	sawGarbage := false
	for i := range n.children {
		if c, ok := n.children[i].resolve(); ok {
			c.notify()
		} else {
			sawGarbage = true
		}
	}

	n.notifying = wasNotifying
	if sawGarbage && !wasNotifying {
		n.compactChildren()
	}
}

// forEachLiveChild resolves each weak child reference and invokes fn for
// the ones still alive. Dead entries are left in place for notify's
// opportunistic compaction rather than removed here, since send-down must
// not mutate the children slice while scheduling may still be iterating
// the bucket this node was drained from.
func (n *node[T]) forEachLiveChild(fn func(AnyNode)) {
	for i := range n.children {
		if c, ok := n.children[i].resolve(); ok {
			fn(c)
		}
	}
}

// compactChildren drops expired weak references. Called only from notify,
// and only when this frame is the outermost notify on the node (see the
// re-entrancy rationale above), so no concurrent iteration over children
// can be invalidated by the slice rewrite.
func (n *node[T]) compactChildren() {
	live := n.children[:0]
	for _, w := range n.children {
		if _, ok := w.resolve(); ok {
			live = append(live, w)
		}
	}
	n.children = live
}

// addChild registers a new weak reference to child, rejecting a duplicate
// link as a programmer error.
func (n *node[T]) addChild(w weakChild, child AnyNode) {
	for _, existing := range n.children {
		if c, ok := existing.resolve(); ok && c == child {
			panic("flow: child node must not be linked twice")
		}
	}
	n.children = append(n.children, w)
}

// sendUp implements the upward write shared by state and cursor nodes.
// Reached through State.SendUp / Cursor.SendUp and from a cursor forwarding
// a write to its parent; it is never exposed directly, and a sensor or plain
// reader node has no sendUpFn, so an upward write to one panics.
func (n *node[T]) sendUp(v T) {
	if n.sendUpFn == nil {
		panic("flow: sendUp called on a node with no upward write path")
	}
	n.sendUpFn(v)
}
