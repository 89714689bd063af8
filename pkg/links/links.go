// Package links implements the link/binding layer: peer links
// (an input reading directly through to an output's TSValue) and REF links
// (an input reading through a dynamically-resolved reference target), plus
// TSInputRoot and TSOutput, the subscriber-management wrappers a node's
// input/output TSValues are held behind.
package links

import (
	"tsengine/pkg/tsvalue"
	"tsengine/pkg/value"
)

// Subscriber receives modification notifications from a TSOutput or a
// LinkTarget it has subscribed to. Nodes implement this to get scheduled
// for re-evaluation when an active input changes.
type Subscriber interface {
	NotifyModified(at value.EngineTime)
}

// observerList is an insertion-ordered, duplicate-permitting multiset of
// Subscribers: a plain slice rather than a map, so that (a) registering the
// same Subscriber twice keeps both registrations rather than collapsing
// them, and (b) NotifyModified fires subscribers in the exact order they
// were registered, run to run.
type observerList struct {
	subs []Subscriber
}

func (o *observerList) subscribe(s Subscriber) {
	o.subs = append(o.subs, s)
}

// unsubscribe removes the first matching registration only, so repeated
// Subscribe(s) calls require an equal number of Unsubscribe(s) calls to
// fully remove s.
func (o *observerList) unsubscribe(s Subscriber) {
	for i, sub := range o.subs {
		if sub == s {
			o.subs = append(o.subs[:i], o.subs[i+1:]...)
			return
		}
	}
}

func (o *observerList) notify(at value.EngineTime) {
	for _, s := range o.subs {
		s.NotifyModified(at)
	}
}

// TSOutput wraps a node's output TSValue with an observer list: the set of
// downstream nodes currently subscribed through a bound input link. Per
// the rule that "subscription adds the input's containing node to the
// output's ObserverList at the same position" — that observer list lives
// here, not on the bare TSValue.
type TSOutput struct {
	value     *tsvalue.TSValue
	observers observerList
}

// NewTSOutput wraps v as a subscribable output.
func NewTSOutput(v *tsvalue.TSValue) *TSOutput {
	return &TSOutput{value: v}
}

// Value returns the underlying TSValue storage.
func (o *TSOutput) Value() *tsvalue.TSValue { return o.value }

// Subscribe registers s to be notified on every future modification.
func (o *TSOutput) Subscribe(s Subscriber) { o.observers.subscribe(s) }

// Unsubscribe removes s from the observer list.
func (o *TSOutput) Unsubscribe(s Subscriber) { o.observers.unsubscribe(s) }

// NotifyModified fires every subscriber, in registration order; called by
// the owning node/engine after the output's TSValue has been mutated for
// the current tick.
func (o *TSOutput) NotifyModified(at value.EngineTime) {
	o.observers.notify(at)
}

// LinkTarget is the common surface of PeerLink and REFLink: something an
// input-side binding can hold, transparently resolving reads through to
// whatever TSValue currently backs it.
type LinkTarget interface {
	// Resolve returns the TSValue a bound input should currently read
	// through to. Returns nil for a REFLink with no resolvable target.
	Resolve() *tsvalue.TSValue
	Subscribe(s Subscriber)
	Unsubscribe(s Subscriber)
	// LastRebindTime returns the time this link last changed what it
	// points at (for a PeerLink, the sentinel MinTime: a peer link never
	// rebinds, its source.data just is target.data).
	LastRebindTime() value.EngineTime
}

// PeerLink is the simple case: source.data = target.data directly. Reads
// resolve straight through to the bound output's TSValue; subscribing adds
// the input's node to that output's ObserverList.
type PeerLink struct {
	output *TSOutput
}

// NewPeerLink binds a peer link directly to output.
func NewPeerLink(output *TSOutput) *PeerLink { return &PeerLink{output: output} }

func (p *PeerLink) Resolve() *tsvalue.TSValue { return p.output.Value() }
func (p *PeerLink) Subscribe(s Subscriber)    { p.output.Subscribe(s) }
func (p *PeerLink) Unsubscribe(s Subscriber)  { p.output.Unsubscribe(s) }

// LastRebindTime is always MinTime: a peer link's target never changes.
func (p *PeerLink) LastRebindTime() value.EngineTime { return value.MinTime }

// FieldLink binds to a single child field of an upstream node's output
// rather than the whole thing. Reads resolve straight through to that
// child TSValue, but subscription goes onto the owning node's single
// TSOutput — the only place NotifyModified is ever actually called from —
// so a field-scoped edge gets notified exactly like a whole-output edge
// does, instead of onto a disposable per-field wrapper nothing ever fires.
type FieldLink struct {
	output *TSOutput
	field  *tsvalue.TSValue
}

// NewFieldLink binds a field link to a child of output's value.
func NewFieldLink(output *TSOutput, field *tsvalue.TSValue) *FieldLink {
	return &FieldLink{output: output, field: field}
}

func (f *FieldLink) Resolve() *tsvalue.TSValue { return f.field }
func (f *FieldLink) Subscribe(s Subscriber)    { f.output.Subscribe(s) }
func (f *FieldLink) Unsubscribe(s Subscriber)  { f.output.Unsubscribe(s) }

// LastRebindTime is always MinTime: a field link's target field never
// changes identity once bound.
func (f *FieldLink) LastRebindTime() value.EngineTime { return value.MinTime }
