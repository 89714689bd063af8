package links

import (
	"fmt"

	"tsengine/pkg/schema"
	"tsengine/pkg/tserrors"
	"tsengine/pkg/tsvalue"
)

// TSInputRoot is a node's input bundle, always a TSB, with a
// LinkTarget optionally bound at each field position. Unbound fields fall
// back to their own passive TSValue storage (a node can still be fed by
// direct calls rather than a graph edge, e.g. in tests).
type TSInputRoot struct {
	root   *tsvalue.TSValue
	owner  Subscriber
	links  map[int]LinkTarget
	active bool
}

// NewTSInputRoot wraps root (which must be a TSB-kind TSValue) as an input
// bundle owned by owner — the node that gets subscribed to every bound
// link once the root is made active.
func NewTSInputRoot(root *tsvalue.TSValue, owner Subscriber) (*TSInputRoot, error) {
	if root.Meta.Kind != schema.KindTSB {
		return nil, fmt.Errorf("tsvalue: TSInputRoot requires a TSB, got %s: %w", root.Meta.Kind, tserrors.ErrTypeMismatch)
	}
	return &TSInputRoot{root: root, owner: owner, links: make(map[int]LinkTarget)}, nil
}

// BindField binds the field at idx to link. If the root is currently
// active, the new link is subscribed immediately.
func (r *TSInputRoot) BindField(idx int, link LinkTarget) error {
	if idx < 0 || idx >= len(r.root.Meta.Fields) {
		return tserrors.ErrIndexOutOfRange
	}
	if existing, ok := r.links[idx]; ok && r.active {
		existing.Unsubscribe(r.owner)
	}
	r.links[idx] = link
	if r.active {
		link.Subscribe(r.owner)
	}
	return nil
}

// BindFieldByName resolves name to a field index and binds it.
func (r *TSInputRoot) BindFieldByName(name string, link LinkTarget) error {
	idx := r.root.Meta.FieldIndex(name)
	if idx < 0 {
		return fmt.Errorf("tsvalue: no input field %q: %w", name, tserrors.ErrIndexOutOfRange)
	}
	return r.BindField(idx, link)
}

// UnbindField removes any link bound at idx, unsubscribing first if active.
func (r *TSInputRoot) UnbindField(idx int) error {
	link, ok := r.links[idx]
	if !ok {
		return nil
	}
	if r.active {
		link.Unsubscribe(r.owner)
	}
	delete(r.links, idx)
	return nil
}

// MakeActive subscribes the owning node through every currently-bound link.
// Safe to call when already active: it returns without subscribing again,
// which matters because Subscribe keeps duplicate registrations.
func (r *TSInputRoot) MakeActive() {
	if r.active {
		return
	}
	for _, link := range r.links {
		link.Subscribe(r.owner)
	}
	r.active = true
}

// MakePassive unsubscribes the owning node from every bound link without
// forgetting the bindings, so a later MakeActive restores them.
func (r *TSInputRoot) MakePassive() {
	if !r.active {
		return
	}
	for _, link := range r.links {
		link.Unsubscribe(r.owner)
	}
	r.active = false
}

// Active reports whether this input root is currently subscribed.
func (r *TSInputRoot) Active() bool { return r.active }

// Field resolves field idx for reading: if bound, through the link's
// current target; otherwise the field's own passive TSValue storage.
func (r *TSInputRoot) Field(idx int) (*tsvalue.TSValue, error) {
	if link, ok := r.links[idx]; ok {
		if resolved := link.Resolve(); resolved != nil {
			return resolved, nil
		}
	}
	return r.root.Child(idx)
}

// Root returns the underlying TSB TSValue (for direct/unbound writes).
func (r *TSInputRoot) Root() *tsvalue.TSValue { return r.root }
