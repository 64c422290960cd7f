package flow

import (
	"crypto/rand"
	"weak"

	"github.com/oklog/ulid/v2"
)

// Multicast is a node's phase-2 delivery sink: every callback connected to
// it receives the node's last value once per commit in which that value
// actually changed. Delivery is single-threaded and sequential; the order
// among observers of one node is unspecified but stable.
type Multicast[T any] struct {
	slots []slot[T]
}

// slot is one registered observer. A Connect-created slot has alive == nil
// and lives until an explicit Disconnect. An AddSlot-created slot has no
// Handle at all — alive reports whether its externally owned owner is
// still reachable, and the slot is dropped once it isn't.
type slot[T any] struct {
	id    ulid.ULID
	alive func() bool
	fn    func(T)
}

func (s slot[T]) expired() bool { return s.alive != nil && !s.alive() }

// Handle identifies one connected observer. Disconnect removes its slot;
// calling Disconnect more than once is a no-op.
type Handle struct {
	id         ulid.ULID
	disconnect func()
}

// Disconnect removes the observer this handle was returned for. Safe to
// call multiple times.
func (h *Handle) Disconnect() {
	if h.disconnect == nil {
		return
	}
	h.disconnect()
	h.disconnect = nil
}

// Connect registers fn to be called with the node's settled value at the
// end of every commit that changes it. The returned Handle's Disconnect
// removes the registration.
func (m *Multicast[T]) Connect(fn func(T)) *Handle {
	id := newObserverID()
	m.slots = append(m.slots, slot[T]{id: id, fn: fn})
	h := &Handle{id: id}
	h.disconnect = func() {
		for i, s := range m.slots {
			if s.id == id {
				m.slots = append(m.slots[:i], m.slots[i+1:]...)
				return
			}
		}
	}
	return h
}

// AddSlot registers fn as an externally owned observer: its lifetime is
// tied to owner rather than to a returned Handle. fn fires only while
// owner is still reachable from somewhere else in the program; once owner
// is collected, the slot stops firing and is swept out of m on the next
// emit, with no explicit disconnect call required. This is the raw,
// externally-owned counterpart to Connect — the same weak-reference
// technique weak.go uses for child links, applied here to observer
// lifetime instead of graph lifetime.
//
// AddSlot is a free function rather than a method because it needs its
// own type parameter for owner, which Go does not allow a method to add
// beyond its receiver's.
func AddSlot[T, O any](m *Multicast[T], owner *O, fn func(T)) {
	ptr := weak.Make(owner)
	m.slots = append(m.slots, slot[T]{
		id:    newObserverID(),
		alive: func() bool { return ptr.Value() != nil },
		fn:    fn,
	})
}

// emit delivers v to every currently-connected, still-live observer. The
// slot list is snapshotted before the first callback runs, so a callback
// that disconnects another observer (or itself) during delivery cannot
// skip or double-fire a sibling slot. Any AddSlot-created slot whose owner
// has since been collected is skipped here and swept from m.slots
// afterward, the same expiry-driven disconnect as a weak child link.
func (m *Multicast[T]) emit(v T) {
	if len(m.slots) == 0 {
		return
	}
	snapshot := make([]slot[T], len(m.slots))
	copy(snapshot, m.slots)

	sawExpired := false
	live := make([]slot[T], 0, len(snapshot))
	for _, s := range snapshot {
		if s.expired() {
			sawExpired = true
			continue
		}
		live = append(live, s)
	}
	for _, s := range live {
		s.fn(v)
	}
	if sawExpired {
		m.compactExpired()
	}
}

// compactExpired drops slots whose AddSlot owner has been collected.
func (m *Multicast[T]) compactExpired() {
	kept := m.slots[:0]
	for _, s := range m.slots {
		if !s.expired() {
			kept = append(kept, s)
		}
	}
	m.slots = kept
}

// Len reports the number of currently-connected observers, used by the
// flowdump introspection tool.
func (m *Multicast[T]) Len() int {
	return len(m.slots)
}

func newObserverID() ulid.ULID {
	id, err := ulid.New(ulid.Now(), rand.Reader)
	if err != nil {
		panic("flow: failed to allocate observer id: " + err.Error())
	}
	return id
}
