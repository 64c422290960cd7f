package flow

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// Commit runs the depth-first form of send-down across roots, then
// notifies each root. It does not deduplicate diamond-converged
// descendants: a node reachable through two of the given roots (or
// through two paths from one root) recomputes once per path. Use
// CommitTopological when that matters.
//
// Duplicate roots are deduplicated before phase 1 begins, so
// Commit(a, a) behaves exactly like Commit(a).
func Commit(roots ...AnyNode) error {
	deduped := dedupRoots(roots)
	if err := phase1DFS(deduped); err != nil {
		return err
	}
	phase2(deduped)
	return nil
}

// CommitTopological runs the rank-ordered send-down form: nodes with two
// or more parents are scheduled through a shared traversal rather than
// visited immediately, so a diamond-converged node recomputes exactly
// once per commit regardless of how many roots or paths reach it. One
// traversal is shared across every root, which is also what lets a node
// reachable from two different roots still be visited exactly once.
func CommitTopological(roots ...AnyNode) error {
	deduped := dedupRoots(roots)
	if err := phase1Topological(deduped); err != nil {
		return err
	}
	phase2(deduped)
	return nil
}

func dedupRoots(roots []AnyNode) []AnyNode {
	if len(roots) == 0 {
		panic("flow: commit requires at least one root")
	}
	// Checked here, outside phase 1's recover, so a nil root surfaces as a
	// programmer-error panic rather than as a returned send-down error.
	for _, r := range roots {
		if r == nil {
			panic("flow: commit called with a nil root")
		}
	}
	set := mapset.NewSet(roots...)
	return set.ToSlice()
}

// phase1DFS drives depth-first send-down over every root and converts any
// transform panic into an error, so that a failure aborts before phase 2
// ever begins; there are no retries and no rollback.
func phase1DFS(roots []AnyNode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("flow: send-down failed: %v", r)
		}
	}()
	for _, r := range roots {
		if r == nil {
			panic("flow: commit called with a nil root")
		}
		r.sendDownDFS()
	}
	return nil
}

// phase1Topological drives the shared-traversal send-down over every root,
// with the same panic-to-error conversion as phase1DFS.
func phase1Topological(roots []AnyNode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("flow: send-down failed: %v", r)
		}
	}()
	t := newTopoTraversal()
	for _, r := range roots {
		if r == nil {
			panic("flow: commit called with a nil root")
		}
		r.scheduleOrSendDown(t)
	}
	t.visit()
	return nil
}

func phase2(roots []AnyNode) {
	for _, r := range roots {
		r.notify()
	}
}
