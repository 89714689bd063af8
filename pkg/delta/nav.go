package delta

// BundleDeltaNav and ListDeltaNav are pure navigation records: they carry no
// add/remove bookkeeping of their own, only a slice of child Trackers
// aligned positionally with a TSB's fields or a TSL's elements. A nil entry
// means that child's schema has no delta (schema.HasDelta is false for it).
// pkg/tsvalue builds one of these wherever schema.HasDelta(m) is true for a
// TSB or TSL, so that deeply nested TSS/TSD changes can still be found
// without rescanning the whole schema tree every tick.

// BundleDeltaNav navigates a TSB's children's delta trackers.
type BundleDeltaNav struct {
	Children []Tracker
}

// NewBundleDeltaNav builds a nav sized for n fields, all initially nil.
func NewBundleDeltaNav(n int) *BundleDeltaNav {
	return &BundleDeltaNav{Children: make([]Tracker, n)}
}

// EndTick forwards to every non-nil child.
func (b *BundleDeltaNav) EndTick() {
	for _, c := range b.Children {
		if c != nil {
			c.EndTick()
		}
	}
}

// ListDeltaNav navigates a TSL's elements' delta trackers.
type ListDeltaNav struct {
	Children []Tracker
}

// NewListDeltaNav builds a nav sized for n elements, all initially nil.
func NewListDeltaNav(n int) *ListDeltaNav {
	return &ListDeltaNav{Children: make([]Tracker, n)}
}

// Resize grows or shrinks the children slice to n entries, preserving
// existing entries and zero-filling new ones.
func (l *ListDeltaNav) Resize(n int) {
	if n <= len(l.Children) {
		l.Children = l.Children[:n]
		return
	}
	grown := make([]Tracker, n)
	copy(grown, l.Children)
	l.Children = grown
}

// EndTick forwards to every non-nil child.
func (l *ListDeltaNav) EndTick() {
	for _, c := range l.Children {
		if c != nil {
			c.EndTick()
		}
	}
}
