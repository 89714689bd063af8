package engine

import "tsengine/pkg/value"

// LifecycleObserver receives node and engine lifecycle notifications, fired
// once per event in registration order. Observers must not mutate graph
// structure (add/remove nodes or edges) from within a notification; they
// only ever read and record, never reach back into the engine they are
// observing.
type LifecycleObserver interface {
	OnNodeStarted(n *Node, at value.EngineTime)
	OnNodeStopped(n *Node)
	OnBeforeEvaluation(at value.EngineTime)
	OnBeforeNode(n *Node, at value.EngineTime)
	OnAfterNode(n *Node, at value.EngineTime, err error)
	OnAfterEvaluation(at value.EngineTime)
}

// NopObserver implements LifecycleObserver with no-ops, for callers that
// don't need telemetry wiring (tests, simple CLIs).
type NopObserver struct{}

func (NopObserver) OnNodeStarted(n *Node, at value.EngineTime) {}
func (NopObserver) OnNodeStopped(n *Node)                      {}
func (NopObserver) OnBeforeEvaluation(at value.EngineTime)     {}
func (NopObserver) OnBeforeNode(n *Node, at value.EngineTime)  {}
func (NopObserver) OnAfterNode(n *Node, at value.EngineTime, err error) {}
func (NopObserver) OnAfterEvaluation(at value.EngineTime)      {}

// multiObserver fans a single notification out to several observers in
// registration order, so internal/telemetry/engine's metrics observer can
// be composed with a caller's own observer rather than replacing it.
type multiObserver struct {
	observers []LifecycleObserver
}

// NewMultiObserver composes obs into a single LifecycleObserver that
// notifies each in order.
func NewMultiObserver(obs ...LifecycleObserver) LifecycleObserver {
	return &multiObserver{observers: obs}
}

func (m *multiObserver) OnNodeStarted(n *Node, at value.EngineTime) {
	for _, o := range m.observers {
		o.OnNodeStarted(n, at)
	}
}

func (m *multiObserver) OnNodeStopped(n *Node) {
	for _, o := range m.observers {
		o.OnNodeStopped(n)
	}
}

func (m *multiObserver) OnBeforeEvaluation(at value.EngineTime) {
	for _, o := range m.observers {
		o.OnBeforeEvaluation(at)
	}
}

func (m *multiObserver) OnBeforeNode(n *Node, at value.EngineTime) {
	for _, o := range m.observers {
		o.OnBeforeNode(n, at)
	}
}

func (m *multiObserver) OnAfterNode(n *Node, at value.EngineTime, err error) {
	for _, o := range m.observers {
		o.OnAfterNode(n, at, err)
	}
}

func (m *multiObserver) OnAfterEvaluation(at value.EngineTime) {
	for _, o := range m.observers {
		o.OnAfterEvaluation(at)
	}
}
