package tsvalue

import (
	"fmt"

	"tsengine/pkg/delta"
	"tsengine/pkg/schema"
	"tsengine/pkg/tserrors"
	"tsengine/pkg/value"
)

// SetScalar sets a TS or SIGNAL leaf's value and bubbles modification time.
func (t *TSValue) SetScalar(v value.Value, at value.EngineTime) error {
	if t.Meta.Kind != schema.KindTS && t.Meta.Kind != schema.KindSignal {
		return fmt.Errorf("tsvalue: SetScalar on %s node: %w", t.Meta.Kind, tserrors.ErrTypeMismatch)
	}
	t.leaf = v
	t.MarkModified(at)
	return nil
}

// Scalar returns the current leaf value (zero Value if never set).
func (t *TSValue) Scalar() value.Value { return t.leaf }

// Child returns the i'th TSB field or TSL element.
func (t *TSValue) Child(i int) (*TSValue, error) {
	if t.Meta.Kind != schema.KindTSB && t.Meta.Kind != schema.KindTSL {
		return nil, fmt.Errorf("tsvalue: Child on %s node: %w", t.Meta.Kind, tserrors.ErrTypeMismatch)
	}
	if i < 0 || i >= len(t.children) {
		return nil, tserrors.ErrIndexOutOfRange
	}
	return t.children[i], nil
}

// Field returns a TSB's named field.
func (t *TSValue) Field(name string) (*TSValue, error) {
	if t.Meta.Kind != schema.KindTSB {
		return nil, fmt.Errorf("tsvalue: Field on %s node: %w", t.Meta.Kind, tserrors.ErrTypeMismatch)
	}
	idx := t.Meta.FieldIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("tsvalue: no field %q: %w", name, tserrors.ErrIndexOutOfRange)
	}
	return t.children[idx], nil
}

// SetAdd inserts key into a TSS, bubbling modification time.
func (t *TSValue) SetAdd(key any, at value.EngineTime) error {
	if t.Meta.Kind != schema.KindTSS {
		return fmt.Errorf("tsvalue: SetAdd on %s node: %w", t.Meta.Kind, tserrors.ErrTypeMismatch)
	}
	t.keys.Insert(key)
	t.MarkModified(at)
	return nil
}

// SetRemove erases key from a TSS, bubbling modification time if present.
func (t *TSValue) SetRemove(key any, at value.EngineTime) error {
	if t.Meta.Kind != schema.KindTSS {
		return fmt.Errorf("tsvalue: SetRemove on %s node: %w", t.Meta.Kind, tserrors.ErrTypeMismatch)
	}
	if _, erased := t.keys.Erase(key); erased {
		t.MarkModified(at)
	}
	return nil
}

// SetContains reports whether key is currently alive in a TSS.
func (t *TSValue) SetContains(key any) bool {
	_, ok := t.keys.Slot(key)
	return ok
}

// SetDelta exposes the TSS's delta tracker (for TSSView.was_removed etc.).
func (t *TSValue) SetDelta() *delta.SetDelta[any] {
	if t.Meta.Kind != schema.KindTSS {
		return nil
	}
	return t.setDelta
}

// MapDelta exposes the TSD's delta tracker.
func (t *TSValue) MapDelta() *delta.MapDelta[any] {
	if t.Meta.Kind != schema.KindTSD {
		return nil
	}
	return t.mapDelta
}

// DictPut ensures key has an entry in a TSD, returning its value TSValue.
// at stamps the TSD container (and ancestors) as modified; a new key's
// value node is not stamped and stays invalid until it is written.
func (t *TSValue) DictPut(key any, at value.EngineTime) (*TSValue, error) {
	if t.Meta.Kind != schema.KindTSD {
		return nil, fmt.Errorf("tsvalue: DictPut on %s node: %w", t.Meta.Kind, tserrors.ErrTypeMismatch)
	}
	slot, inserted := t.keys.Insert(key)
	child := t.dictValues[slot]
	child.segment = PathSegment{Key: key}
	t.MarkModified(at)
	if !inserted {
		t.mapDelta.OnUpdate(slot)
	}
	return child, nil
}

// DictGet looks up key's value node in a TSD without creating it.
func (t *TSValue) DictGet(key any) (*TSValue, bool) {
	slot, ok := t.keys.Slot(key)
	if !ok {
		return nil, false
	}
	return t.dictValues[slot], true
}

// DictRemove erases key from a TSD, bubbling modification time if present.
func (t *TSValue) DictRemove(key any, at value.EngineTime) error {
	if t.Meta.Kind != schema.KindTSD {
		return fmt.Errorf("tsvalue: DictRemove on %s node: %w", t.Meta.Kind, tserrors.ErrTypeMismatch)
	}
	if _, erased := t.keys.Erase(key); erased {
		t.MarkModified(at)
	}
	return nil
}

// DictKeys iterates every alive key in a TSD in slot order.
func (t *TSValue) DictKeys(f func(key any, v *TSValue)) {
	t.keys.ForEachAlive(func(slot int, key any) { f(key, t.dictValues[slot]) })
}

// WindowPush appends a sample to a TSW. A size-bounded window (WindowSize >
// 0) overwrites the oldest sample once its fixed ring fills. A
// duration-bounded window instead grows its ring as needed and evicts every
// sample older than WindowDuration (engine time is treated as nanoseconds,
// matching time.Duration's unit) after each push.
func (t *TSValue) WindowPush(v value.Value, at value.EngineTime) error {
	if t.Meta.Kind != schema.KindTSW {
		return fmt.Errorf("tsvalue: WindowPush on %s node: %w", t.Meta.Kind, tserrors.ErrTypeMismatch)
	}
	if t.Meta.WindowSize > 0 {
		cap := len(t.window)
		if t.windowLen < cap {
			idx := (t.windowHead + t.windowLen) % cap
			t.window[idx] = v
			t.windowTimes[idx] = at
			t.windowLen++
		} else {
			t.window[t.windowHead] = v
			t.windowTimes[t.windowHead] = at
			t.windowHead = (t.windowHead + 1) % cap
		}
	} else {
		if t.windowLen == len(t.window) {
			t.window = append(t.window, value.Value{})
			t.windowTimes = append(t.windowTimes, 0)
		}
		idx := (t.windowHead + t.windowLen) % len(t.window)
		t.window[idx] = v
		t.windowTimes[idx] = at
		t.windowLen++

		cutoff := at - value.EngineTime(t.Meta.WindowDuration.Nanoseconds())
		for t.windowLen > 0 && t.windowTimes[t.windowHead] < cutoff {
			t.windowHead = (t.windowHead + 1) % len(t.window)
			t.windowLen--
		}
	}
	t.MarkModified(at)
	return nil
}

// WindowValues returns the window's current samples oldest-first.
func (t *TSValue) WindowValues() []value.Value {
	out := make([]value.Value, t.windowLen)
	for i := 0; i < t.windowLen; i++ {
		out[i] = t.window[(t.windowHead+i)%len(t.window)]
	}
	return out
}

// Bind attaches target as a REF's current target, bubbling modification
// time (a rebind is itself a modification of the REF node).
func (t *TSValue) Bind(target *TSValue, at value.EngineTime) error {
	if t.Meta.Kind != schema.KindREF {
		return fmt.Errorf("tsvalue: Bind on %s node: %w", t.Meta.Kind, tserrors.ErrTypeMismatch)
	}
	t.refTarget = target
	t.MarkModified(at)
	return nil
}

// Target returns the REF's currently bound node, or nil if unbound.
func (t *TSValue) Target() *TSValue { return t.refTarget }
