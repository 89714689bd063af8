// Package tsvalue implements TSValue, the materialized storage node behind
// every time-series value in the graph: a value tree, a
// parallel last-modified-time tree, and — where schema.HasDelta says a node
// needs one — a delta tree (pkg/delta), all built recursively from a
// *schema.TSMeta. Observer/subscriber bookkeeping lives one layer up, in
// pkg/links; TSValue itself only stores and bubbles up modification times.
package tsvalue

import (
	"tsengine/pkg/delta"
	"tsengine/pkg/schema"
	"tsengine/pkg/value"
)

// PathSegment is one step of a ShortPath/FQPath, identifying how to
// navigate from a parent TSValue down to this one.
type PathSegment struct {
	Field string // set for a TSB field step
	Index int    // set (>=0) for a TSL element step
	Key   any    // set (non-nil) for a TSD element step
}

// TSValue is one node of the materialized value/time/delta trees.
type TSValue struct {
	Meta       *schema.TSMeta
	ModifiedAt value.EngineTime

	parent  *TSValue
	segment PathSegment

	leaf value.Value // TS, SIGNAL, TSW's per-sample element

	children []*TSValue // TSB fields / TSL elements

	keys       *value.KeySet[any]
	setDelta   *delta.SetDelta[any]
	mapDelta   *delta.MapDelta[any]
	dictValues []*TSValue // TSD only, slot-indexed

	refTarget *TSValue // REF only

	window      []value.Value
	windowTimes []value.EngineTime
	windowHead  int
	windowLen   int

	bundleNav *delta.BundleDeltaNav
	listNav   *delta.ListDeltaNav
}

// New recursively materializes storage for meta, rooted with no parent.
func New(meta *schema.TSMeta) *TSValue {
	return newChild(meta, nil, PathSegment{Index: -1})
}

func newChild(meta *schema.TSMeta, parent *TSValue, seg PathSegment) *TSValue {
	t := &TSValue{Meta: meta, ModifiedAt: value.MinTime, parent: parent, segment: seg}
	switch meta.Kind {
	case schema.KindTS, schema.KindSignal:
		// leaf left zero-valued until first Set.
	case schema.KindTSB:
		t.children = make([]*TSValue, len(meta.Fields))
		for i, f := range meta.Fields {
			t.children[i] = newChild(f.Meta, t, PathSegment{Field: f.Name, Index: -1})
		}
		if schema.HasDelta(meta) {
			t.bundleNav = delta.NewBundleDeltaNav(len(meta.Fields))
			for i, f := range meta.Fields {
				if schema.HasDelta(f.Meta) {
					t.bundleNav.Children[i] = t.children[i].deltaTracker()
				}
			}
		}
	case schema.KindTSL:
		n := meta.N
		t.children = make([]*TSValue, n)
		for i := 0; i < n; i++ {
			t.children[i] = newChild(meta.Elem, t, PathSegment{Index: i})
		}
		if schema.HasDelta(meta) {
			t.listNav = delta.NewListDeltaNav(n)
			for i := range t.children {
				if schema.HasDelta(meta.Elem) {
					t.listNav.Children[i] = t.children[i].deltaTracker()
				}
			}
		}
	case schema.KindTSS:
		t.keys = value.NewKeySet[any]()
		t.setDelta = delta.NewSetDelta(hashAny, func(slot int) any { return t.keys.KeyAt(slot) })
		t.keys.Subscribe(t.setDelta)
	case schema.KindTSD:
		t.keys = value.NewKeySet[any]()
		t.dictValues = nil
		t.mapDelta = delta.NewMapDelta(hashAny, func(slot int) any { return t.keys.KeyAt(slot) })
		t.keys.Subscribe(t.mapDelta)
		t.keys.Subscribe(dictValuesResizer{t})
	case schema.KindTSW:
		cap := meta.WindowSize
		if cap <= 0 {
			cap = 4 // duration-bounded: seed capacity, grown by WindowPush as needed
		}
		t.window = make([]value.Value, cap)
		t.windowTimes = make([]value.EngineTime, cap)
	case schema.KindREF:
		// refTarget left nil until Bind.
	}
	return t
}

// deltaTracker returns this node's own delta.Tracker, or nil if it is not
// itself a delta-bearing kind (used when wiring a parent's nav).
func (t *TSValue) deltaTracker() delta.Tracker {
	switch t.Meta.Kind {
	case schema.KindTSS:
		return t.setDelta
	case schema.KindTSD:
		return t.mapDelta
	case schema.KindTSB:
		return t.bundleNav
	case schema.KindTSL:
		return t.listNav
	case schema.KindREF:
		if t.refTarget != nil {
			return t.refTarget.deltaTracker()
		}
		return nil
	default:
		return nil
	}
}

// dictValuesResizer keeps TSD's per-slot value-node slice in lockstep with
// the backing KeySet's capacity/insert/erase events via the slot-observer
// protocol.
type dictValuesResizer struct{ t *TSValue }

func (r dictValuesResizer) OnCapacity(oldCap, newCap int) {
	grown := make([]*TSValue, newCap)
	copy(grown, r.t.dictValues)
	r.t.dictValues = grown
}

func (r dictValuesResizer) OnInsert(slot int) {
	r.t.dictValues[slot] = newChild(r.t.Meta.Elem, r.t, PathSegment{Index: -1})
	if r.t.mapDelta != nil && schema.HasDelta(r.t.Meta.Elem) {
		r.t.mapDelta.Children[slot] = r.t.dictValues[slot].deltaTracker()
	}
}

func (r dictValuesResizer) OnErase(slot int) {
	r.t.dictValues[slot] = nil
}

func (r dictValuesResizer) OnClear() {
	for i := range r.t.dictValues {
		r.t.dictValues[i] = nil
	}
}

// MarkModified sets this node's modification time and bubbles the same
// time up through every ancestor container: a container's time always
// equals the max child time recorded at that position.
func (t *TSValue) MarkModified(at value.EngineTime) {
	for n := t; n != nil; n = n.parent {
		if n.ModifiedAt >= at {
			// Already at-or-past current time (another child at the same
			// tick already bubbled it); still keep walking so a distant
			// ancestor that hasn't been touched this tick yet gets set.
			if n.ModifiedAt > at {
				break
			}
			n.ModifiedAt = at
			continue
		}
		n.ModifiedAt = at
	}
}

// Modified reports whether this node's time equals the given current
// engine time (the modified() predicate).
func (t *TSValue) Modified(currentTime value.EngineTime) bool {
	return t.ModifiedAt == currentTime
}

// Valid reports whether this node has ever been set (last_modified_time is
// not the sentinel MinTime).
func (t *TSValue) Valid() bool { return t.ModifiedAt != value.MinTime }

// LastModifiedTime returns the node's last modification time.
func (t *TSValue) LastModifiedTime() value.EngineTime { return t.ModifiedAt }
