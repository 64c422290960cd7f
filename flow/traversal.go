package flow

import "github.com/google/btree"

// topoTraversal is the per-commit rank-ordered schedule used by
// CommitTopological. It owns no nodes and allocates no rank bucket: the
// rankBucket each node schedules into belongs to the node's own lineage
// (see schedule.go) and is only borrowed for the duration of one visit().
// A bucket's nodes slice is reset to nil when drained, so it grows afresh
// on each visit.
//
// The ordering structure is github.com/google/btree, which gives
// logarithmic insert, delete-minimum, and in-order iteration. Membership
// itself is O(1) via each bucket's own linked flag — the btree only
// orders the buckets currently in flight.
type topoTraversal struct {
	ranks *btree.BTreeG[*rankBucket]
}

func newTopoTraversal() *topoTraversal {
	return &topoTraversal{
		ranks: btree.NewG(32, func(a, b *rankBucket) bool { return a.rank < b.rank }),
	}
}

// schedule inserts n into its rank bucket, reusing whichever bucket
// already occupies that rank in the tree this visit. The tree's less
// function orders purely by rank, so two different lineages' own buckets
// collide at the same key the moment they share a rank: ReplaceOrInsert
// would treat the second as a duplicate of the first and evict it,
// silently dropping every node already queued there. Get first and, if
// some other bucket already holds this rank, fold n into that bucket
// instead of inserting n's own — the tree ends up holding exactly one
// bucket per rank in flight, regardless of how many lineages feed it.
// Idempotent: a node already scheduled this visit is a no-op.
func (t *topoTraversal) schedule(n AnyNode) {
	if n.isScheduled() {
		return
	}
	b := n.bucket()
	if !b.linked {
		if existing, found := t.ranks.Get(b); found {
			b = existing
		} else {
			b.linked = true
			t.ranks.ReplaceOrInsert(b)
		}
	}
	n.setScheduled(true)
	b.nodes = append(b.nodes, n)
}

// visit drains the schedule in nondecreasing rank order. Draining a
// bucket at rank r may schedule further nodes at rank r+1 or higher
// (never lower, by the rank invariant), so buckets inserted mid-visit are
// always visited after whatever is currently being drained.
func (t *topoTraversal) visit() {
	for t.ranks.Len() > 0 {
		b, ok := t.ranks.DeleteMin()
		if !ok {
			return
		}
		b.linked = false
		nodes := b.nodes
		b.nodes = nil
		for _, n := range nodes {
			n.setScheduled(false)
			n.sendDownTopo(t)
		}
	}
}
