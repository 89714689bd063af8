package delta

// SetDelta tracks per-tick membership changes for a TSS value, observing a
// value.KeySet[K] via the KeySetObserver protocol. It implements
// add/remove cancellation and the removed_key_hashes index used to
// answer "was k removed this tick" after the slot backing k may already have
// been reassigned.
//
// Because the underlying KeySet defers slot recycling to EndTick (see
// pkg/value/keyset.go), a slot erased earlier in the same tick can never be
// reused by an insert in that same tick — so the "erase-then-insert at the
// same slot" case never actually arises
// here. What remains, and is handled below, is the ordinary case: insert
// then erase of the *same* slot within a tick cancels out of `added`.
type SetDelta[K comparable] struct {
	hash  func(K) uint64
	keyAt func(slot int) K

	added            map[int]struct{}
	removed          map[int]struct{}
	updated          map[int]struct{}
	removedKeyHashes map[uint64]struct{}
	cleared          bool

	modifiedCache map[int]struct{}
	dirty         bool
}

// NewSetDelta builds a SetDelta. hash computes a stable hash of a key (used
// only for the removed_key_hashes index); keyAt resolves a live slot back to
// its key, needed at erase time before the slot's key is gone.
func NewSetDelta[K comparable](hash func(K) uint64, keyAt func(int) K) *SetDelta[K] {
	return &SetDelta[K]{
		hash:             hash,
		keyAt:            keyAt,
		added:            make(map[int]struct{}),
		removed:          make(map[int]struct{}),
		updated:          make(map[int]struct{}),
		removedKeyHashes: make(map[uint64]struct{}),
		dirty:            true,
	}
}

// OnCapacity is a no-op for SetDelta; sets carry no per-slot child state.
func (d *SetDelta[K]) OnCapacity(oldCap, newCap int) {}

// OnInsert records a newly-live slot as added.
func (d *SetDelta[K]) OnInsert(slot int) {
	d.added[slot] = struct{}{}
	d.dirty = true
}

// OnErase records slot as removed, unless it was added earlier in this same
// tick, in which case the two cancel (invariant: a slot never appears in
// both added and removed for the same tick).
func (d *SetDelta[K]) OnErase(slot int) {
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

// OnClear marks the whole set as cleared this tick.
func (d *SetDelta[K]) OnClear() {
	d.cleared = true
	d.dirty = true
}

// Added returns the set of slots inserted this tick.
func (d *SetDelta[K]) Added() map[int]struct{} { return d.added }

// Removed returns the set of slots erased this tick (post-cancellation).
func (d *SetDelta[K]) Removed() map[int]struct{} { return d.removed }

// Cleared reports whether Clear() was called on the backing KeySet this tick.
func (d *SetDelta[K]) Cleared() bool { return d.cleared }

// WasKeyRemoved reports whether k was removed at some point this tick, even
// though its slot may since have been reassigned.
func (d *SetDelta[K]) WasKeyRemoved(k K) bool {
	_, ok := d.removedKeyHashes[d.hash(k)]
	return ok
}

// Modified returns the set of slots considered "touched" this tick: added
// ∪ updated. The result is cached until the next mutation or EndTick.
func (d *SetDelta[K]) Modified() map[int]struct{} {
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

// EndTick discards all per-tick bookkeeping, ready for the next tick.
func (d *SetDelta[K]) EndTick() {
	d.added = make(map[int]struct{})
	d.removed = make(map[int]struct{})
	d.updated = make(map[int]struct{})
	d.removedKeyHashes = make(map[uint64]struct{})
	d.cleared = false
	d.modifiedCache = nil
	d.dirty = true
}
