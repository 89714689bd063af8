package links

import (
	"tsengine/pkg/tsvalue"
	"tsengine/pkg/value"
)

// TargetResolver maps a just-read TSReference payload (the REF cell's
// scalar value) to the TSOutput it names. Resolution requires knowing the
// graph's node/port namespace, which pkg/links deliberately does not — that
// knowledge belongs to internal/engine, which supplies the resolver when
// constructing a REFLink.
type TargetResolver func(ref value.View) *TSOutput

// refSourceListener and refTargetListener are thin Subscriber adapters so a
// REFLink can tell apart "the source reference cell changed" (rebind) from
// "the currently-resolved target changed" (value), per its two
// distinct subscriptions.
type refSourceListener struct{ l *REFLink }

func (r refSourceListener) NotifyModified(at value.EngineTime) { r.l.onSourceChanged(at) }

type refTargetListener struct{ l *REFLink }

func (r refTargetListener) NotifyModified(at value.EngineTime) { r.l.onTargetChanged(at) }

// REFLink implements a reference-indirection link: its source is a
// TSOutput carrying a TSReference value; the link resolves that reference
// to a concrete target TSOutput and subscribes through to it. A change to
// the source triggers a rebind (unsubscribe the old target, re-resolve,
// subscribe the new one); a change to the target is forwarded directly.
type REFLink struct {
	source  *TSOutput
	resolve TargetResolver

	currentTarget  *TSOutput
	lastRebindTime value.EngineTime

	subscribers observerList
}

// NewREFLink builds a REFLink over source, resolving the initial target
// immediately via resolve.
func NewREFLink(source *TSOutput, resolve TargetResolver) *REFLink {
	l := &REFLink{
		source:         source,
		resolve:        resolve,
		lastRebindTime: value.MinTime,
	}
	source.Subscribe(refSourceListener{l})
	l.rebind(source.Value().LastModifiedTime())
	return l
}

// rebind re-reads the source's current TSReference payload, unsubscribes
// from the previous target, resolves and subscribes to the new one.
func (l *REFLink) rebind(at value.EngineTime) {
	if l.currentTarget != nil {
		l.currentTarget.Unsubscribe(refTargetListener{l})
	}
	l.currentTarget = l.resolve(l.source.Value().Scalar().View())
	if l.currentTarget != nil {
		l.currentTarget.Subscribe(refTargetListener{l})
	}
	l.lastRebindTime = at
}

func (l *REFLink) onSourceChanged(at value.EngineTime) {
	l.rebind(at)
	l.dispatch(at)
}

func (l *REFLink) onTargetChanged(at value.EngineTime) {
	l.dispatch(at)
}

func (l *REFLink) dispatch(at value.EngineTime) {
	l.subscribers.notify(at)
}

// Resolve returns the currently-bound target's TSValue, or nil if the
// reference does not currently resolve to anything.
func (l *REFLink) Resolve() *tsvalue.TSValue {
	if l.currentTarget == nil {
		return nil
	}
	return l.currentTarget.Value()
}

// Subscribe registers s on this REFLink's own notification list (distinct
// from the internal source/target listeners, which are wired for the
// link's lifetime regardless of active/passive state).
func (l *REFLink) Subscribe(s Subscriber) { l.subscribers.subscribe(s) }

// Unsubscribe removes s from this REFLink's notification list.
func (l *REFLink) Unsubscribe(s Subscriber) { l.subscribers.unsubscribe(s) }

// LastRebindTime returns when this link last re-resolved its target.
func (l *REFLink) LastRebindTime() value.EngineTime { return l.lastRebindTime }

// Modified reports whether this link should be considered "touched" at the
// given time: either the source rebound this tick, or the resolved target
// itself changed this tick.
func (l *REFLink) Modified(at value.EngineTime) bool {
	if l.lastRebindTime == at {
		return true
	}
	return l.currentTarget != nil && l.currentTarget.Value().Modified(at)
}
