package delta

// MapDelta tracks per-tick key/value changes for a TSD, with the same
// add/remove cancellation and removed_key_hashes index as SetDelta, plus a
// per-slot child Tracker for the case where TSD's value schema itself
// carries a delta (a TSD of TSS, for instance). Child trackers are created
// and wired in by pkg/tsvalue when it allocates a new slot; MapDelta itself
// only owns the slot-keyed map and forwards EndTick.
type MapDelta[K comparable] struct {
	hash  func(K) uint64
	keyAt func(slot int) K

	added            map[int]struct{}
	removed          map[int]struct{}
	updated          map[int]struct{}
	removedKeyHashes map[uint64]struct{}
	cleared          bool

	Children map[int]Tracker

	modifiedCache map[int]struct{}
	dirty         bool
}

// NewMapDelta builds a MapDelta. See SetDelta for the hash/keyAt contract.
func NewMapDelta[K comparable](hash func(K) uint64, keyAt func(int) K) *MapDelta[K] {
	return &MapDelta[K]{
		hash:             hash,
		keyAt:            keyAt,
		added:            make(map[int]struct{}),
		removed:          make(map[int]struct{}),
		updated:          make(map[int]struct{}),
		removedKeyHashes: make(map[uint64]struct{}),
		Children:         make(map[int]Tracker),
		dirty:            true,
	}
}

// OnCapacity drops any stale child entries beyond the new capacity; growth
// itself needs no action since Children is a sparse map.
func (d *MapDelta[K]) OnCapacity(oldCap, newCap int) {
	if newCap >= oldCap {
		return
	}
	for slot := range d.Children {
		if slot >= newCap {
			delete(d.Children, slot)
		}
	}
}

// OnInsert records slot as added. If the slot was pending removal within
// this same tick (structurally unreachable under the deferred-free KeySet,
// but kept for symmetry with a map's "replace" semantics), the removal is
// retracted and the slot is treated as updated instead of added-fresh.
func (d *MapDelta[K]) OnInsert(slot int) {
	if _, wasRemoved := d.removed[slot]; wasRemoved {
		delete(d.removed, slot)
		d.updated[slot] = struct{}{}
		d.dirty = true
		return
	}
	d.added[slot] = struct{}{}
	d.dirty = true
}

// OnErase mirrors SetDelta.OnErase, additionally dropping any child tracker
// for the slot.
func (d *MapDelta[K]) OnErase(slot int) {
	delete(d.Children, slot)
	if _, wasAdded := d.added[slot]; wasAdded {
		delete(d.added, slot)
		d.dirty = true
		return
	}
	d.removed[slot] = struct{}{}
	delete(d.updated, slot)
	d.removedKeyHashes[d.hash(d.keyAt(slot))] = struct{}{}
	d.dirty = true
}

// OnClear marks the whole map as cleared this tick.
func (d *MapDelta[K]) OnClear() {
	d.cleared = true
	d.dirty = true
	for k := range d.Children {
		delete(d.Children, k)
	}
}

// OnUpdate records slot as having had its value modified in place (without
// a membership change).
func (d *MapDelta[K]) OnUpdate(slot int) {
	if _, wasAdded := d.added[slot]; wasAdded {
		return
	}
	d.updated[slot] = struct{}{}
	d.dirty = true
}

// Added returns the set of slots inserted this tick.
func (d *MapDelta[K]) Added() map[int]struct{} { return d.added }

// Removed returns the set of slots erased this tick (post-cancellation).
func (d *MapDelta[K]) Removed() map[int]struct{} { return d.removed }

// Updated returns the set of slots whose value changed in place this tick.
func (d *MapDelta[K]) Updated() map[int]struct{} { return d.updated }

// Cleared reports whether Clear() was called on the backing KeySet this tick.
func (d *MapDelta[K]) Cleared() bool { return d.cleared }

// WasKeyRemoved reports whether k was removed at some point this tick.
func (d *MapDelta[K]) WasKeyRemoved(k K) bool {
	_, ok := d.removedKeyHashes[d.hash(k)]
	return ok
}

// Modified returns added ∪ updated, cached until the next mutation.
func (d *MapDelta[K]) Modified() map[int]struct{} {
	if d.dirty {
		m := make(map[int]struct{}, len(d.added)+len(d.updated))
		for s := range d.added {
			m[s] = struct{}{}
		}
		for s := range d.updated {
			m[s] = struct{}{}
		}
		d.modifiedCache = m
		d.dirty = false
	}
	return d.modifiedCache
}

// EndTick forwards to every live child tracker, then discards per-tick
// bookkeeping.
func (d *MapDelta[K]) EndTick() {
	for _, c := range d.Children {
		c.EndTick()
	}
	d.added = make(map[int]struct{})
	d.removed = make(map[int]struct{})
	d.updated = make(map[int]struct{})
	d.removedKeyHashes = make(map[uint64]struct{})
	d.cleared = false
	d.modifiedCache = nil
	d.dirty = true
}
