package value

// KeySetObserver receives slot-level lifecycle events from a KeySet. Delta
// trackers (pkg/delta) and TSValue's parallel value/time/observer arrays
// (pkg/tsvalue) implement this to stay in lockstep with slot assignment —
// this is the "slot-observer protocol" referenced throughout the schema and
// delta designs.
type KeySetObserver interface {
	OnCapacity(oldCap, newCap int)
	OnInsert(slot int)
	// OnErase is called immediately on Erase, before the slot is actually
	// freed for reuse (that happens on EndTick).
	OnErase(slot int)
	OnClear()
}

// KeySet is slot-stable storage for set/map keys: once assigned, a key
// occupies the same slot for its lifetime (invariant 8). An alive-bitset
// tracks liveness and a free list reuses erased slots, but only from the
// next tick onward — erased payloads (here, just the key; values live in
// the owning TSValue) are preserved for the remainder of the tick so that
// removed() iteration can still read them.
type KeySet[K comparable] struct {
	keys  []K
	alive []bool
	index map[K]int

	free        []int
	pendingFree []int

	observers []KeySetObserver
}

// NewKeySet creates an empty KeySet.
func NewKeySet[K comparable]() *KeySet[K] {
	return &KeySet[K]{index: make(map[K]int)}
}

// Subscribe registers an observer for capacity/insert/erase/clear events.
func (s *KeySet[K]) Subscribe(o KeySetObserver) { s.observers = append(s.observers, o) }

func (s *KeySet[K]) grow() int {
	old := len(s.keys)
	newCap := old + 1
	s.keys = append(s.keys, *new(K))
	s.alive = append(s.alive, false)
	for _, o := range s.observers {
		o.OnCapacity(old, newCap)
	}
	return old
}

// Insert returns the slot for key, allocating a new one if key is not
// currently alive. inserted is false if key was already alive (no-op).
func (s *KeySet[K]) Insert(key K) (slot int, inserted bool) {
	if slot, ok := s.index[key]; ok {
		return slot, false
	}
	if n := len(s.free); n > 0 {
		slot = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		slot = s.grow()
	}
	s.keys[slot] = key
	s.alive[slot] = true
	s.index[key] = slot
	for _, o := range s.observers {
		o.OnInsert(slot)
	}
	return slot, true
}

// Erase removes key from the alive set. The slot's key is retained (and
// reported no-longer-alive) until EndTick, at which point it is returned to
// the free list and may be reused by a subsequent Insert — including a
// re-insertion of the same key within a *later* tick. A re-insertion of the
// same key within the *same* tick always allocates a fresh slot, since the
// old slot has not yet been recycled (see DESIGN.md, "erase-then-insert").
func (s *KeySet[K]) Erase(key K) (slot int, erased bool) {
	slot, ok := s.index[key]
	if !ok {
		return 0, false
	}
	delete(s.index, key)
	s.alive[slot] = false
	s.pendingFree = append(s.pendingFree, slot)
	for _, o := range s.observers {
		o.OnErase(slot)
	}
	return slot, true
}

// EndTick recycles slots erased during the tick just finished, making them
// available for reuse by future Insert calls.
func (s *KeySet[K]) EndTick() {
	if len(s.pendingFree) == 0 {
		return
	}
	s.free = append(s.free, s.pendingFree...)
	s.pendingFree = s.pendingFree[:0]
}

// Clear erases every alive key immediately, including from the free-list
// bookkeeping (used at explicit tick-end clear, not via Erase's deferred
// path — TSS/TSD "cleared" semantics only expose a cleared_flag to deltas).
func (s *KeySet[K]) Clear() {
	for slot, alive := range s.alive {
		if alive {
			s.alive[slot] = false
		}
	}
	s.index = make(map[K]int)
	s.free = s.free[:0]
	s.pendingFree = s.pendingFree[:0]
	for i := range s.keys {
		s.free = append(s.free, i)
	}
	for _, o := range s.observers {
		o.OnClear()
	}
}

func (s *KeySet[K]) Alive(slot int) bool { return slot >= 0 && slot < len(s.alive) && s.alive[slot] }

// KeyAt returns the key occupying slot, valid even for a slot erased earlier
// in the current tick (before EndTick recycles it).
func (s *KeySet[K]) KeyAt(slot int) K { return s.keys[slot] }

// Slot looks up the slot of an alive key.
func (s *KeySet[K]) Slot(key K) (int, bool) {
	slot, ok := s.index[key]
	return slot, ok
}

// Capacity returns the number of slots ever allocated (alive or not).
func (s *KeySet[K]) Capacity() int { return len(s.keys) }

// Len returns the number of currently alive keys.
func (s *KeySet[K]) Len() int { return len(s.index) }

// ForEachAlive iterates alive slots in ascending index order.
func (s *KeySet[K]) ForEachAlive(f func(slot int, key K)) {
	for slot, alive := range s.alive {
		if alive {
			f(slot, s.keys[slot])
		}
	}
}
