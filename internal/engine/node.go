// Package engine implements the scheduler/evaluation core: Node, Graph,
// and EvaluationEngine, generalized from
// core/worker.go's ticker-driven commit/eviction loops and core/store.go's
// per-key instance management into a dependency-ordered tick loop over a
// graph of time-series nodes.
package engine

import (
	"fmt"

	"tsengine/pkg/clock"
	"tsengine/pkg/links"
	"tsengine/pkg/schema"
	"tsengine/pkg/tserrors"
	"tsengine/pkg/tsvalue"
	"tsengine/pkg/value"
)

// Compute is the node-kind-specific logic a Node runs when scheduled,
// covering all the "compute flavours" (plain compute,
// generator, push-source, nested wrapper) behind one function shape: given
// the node's bound inputs and its own output, produce the current tick's
// value. Nested wrappers (internal/engine/nested) additionally drive their
// own sub-graphs from within Compute.
type Compute func(n *Node, at value.EngineTime) error

// Signature describes a node's kind for diagnostics and telemetry labels
// ("signature" field on Node).
type Signature struct {
	Name string
	Kind string // "compute" | "generator" | "push-source" | "nested"
}

// Node is one scheduled unit of computation in a Graph.
type Node struct {
	ID        string
	Signature Signature
	Scalars   map[string]any

	inputRoot *links.TSInputRoot
	output    *links.TSOutput
	errorOut  *links.TSOutput // optional, non-nil only for nodes with a declared error_out port

	compute Compute

	lastEvalTime value.EngineTime
	pendingEval  bool
	active       bool

	// forceScheduleAt, when not value.MinTime, means this node must be
	// evaluated at that time regardless of input modification (timers,
	// generators, notify_once startup notifications).
	forceScheduleAt value.EngineTime
}

// NewNode builds a Node over the given input/output schemas. inputMeta must
// be a TSB (TSInputRoot's requirement); outputMeta may be any TSMeta kind.
func NewNode(id string, sig Signature, inputMeta, outputMeta *schema.TSMeta, compute Compute) (*Node, error) {
	n := &Node{
		ID:              id,
		Signature:       sig,
		Scalars:         make(map[string]any),
		compute:         compute,
		lastEvalTime:    value.MinTime,
		forceScheduleAt: value.MinTime,
	}
	inputRoot, err := links.NewTSInputRoot(tsvalue.New(inputMeta), n)
	if err != nil {
		return nil, fmt.Errorf("engine: node %s: %w", id, err)
	}
	n.inputRoot = inputRoot
	n.output = links.NewTSOutput(tsvalue.New(outputMeta))
	return n, nil
}

// WithErrorOut attaches an error_out port to the node.
func (n *Node) WithErrorOut(errorMeta *schema.TSMeta) *Node {
	n.errorOut = links.NewTSOutput(tsvalue.New(errorMeta))
	return n
}

// InputRoot returns the node's input bundle.
func (n *Node) InputRoot() *links.TSInputRoot { return n.inputRoot }

// Output returns the node's output port.
func (n *Node) Output() *links.TSOutput { return n.output }

// ErrorOut returns the node's error port, or nil if it was never declared.
func (n *Node) ErrorOut() *links.TSOutput { return n.errorOut }

// NotifyModified implements links.Subscriber: an active input link fired
// this tick, so the node should be scheduled for re-evaluation.
func (n *Node) NotifyModified(at value.EngineTime) { n.pendingEval = true }

// RequestSchedule asks the engine to evaluate this node at t even if no
// input is modified (used by generators/timers/push sources, and by
// notify_once REF startup notifications).
func (n *Node) RequestSchedule(t value.EngineTime) { n.forceScheduleAt = t }

// Initialise is a no-op placeholder matching the Node lifecycle contract:
// storage is already created by NewNode, so Initialise exists only so
// callers can follow the spec's initialise/start/eval/stop/dispose
// lifecycle symmetrically.
func (n *Node) Initialise() error { return nil }

// Start subscribes the inputs' links and marks the node active. It does not
// schedule the node at the start time: at is unused, and a forced schedule
// requested earlier through RequestSchedule is left as it was.
func (n *Node) Start(at value.EngineTime) error {
	n.inputRoot.MakeActive()
	n.active = true
	return nil
}

// scheduledAt reports whether the node should run this tick: either an
// active input fired (pendingEval), or it has an outstanding forced
// schedule at exactly this time.
func (n *Node) scheduledAt(at value.EngineTime) bool {
	return n.pendingEval || n.forceScheduleAt == at
}

// Eval runs the node's compute if it is scheduled at at, clearing the
// pending flags regardless (a node not scheduled this tick is simply
// skipped — it is not an error to call Eval when not scheduled).
func (n *Node) Eval(at value.EngineTime, clk clock.EngineEvaluationClock) error {
	if !n.scheduledAt(at) {
		return nil
	}
	n.pendingEval = false
	if n.forceScheduleAt == at {
		n.forceScheduleAt = value.MinTime
	}
	if n.compute == nil {
		return fmt.Errorf("engine: node %s has no compute: %w", n.ID, tserrors.ErrNotActive)
	}
	if err := n.compute(n, at); err != nil {
		return &tserrors.ComputeFailure{NodeID: n.ID, AtTime: int64(at), Cause: err}
	}
	n.lastEvalTime = at
	if n.output.Value().Modified(at) {
		n.output.NotifyModified(at)
	}
	if n.errorOut != nil && n.errorOut.Value().Modified(at) {
		n.errorOut.NotifyModified(at)
	}
	return nil
}

// Stop unsubscribes all input links without forgetting the bindings.
func (n *Node) Stop() error {
	n.inputRoot.MakePassive()
	n.active = false
	return nil
}

// Dispose is a no-op placeholder: Node's storage is garbage-collected with
// it, there is nothing to release explicitly in this Go port.
func (n *Node) Dispose() error { return nil }

// Active reports whether the node is currently started.
func (n *Node) Active() bool { return n.active }

// LastEvalTime returns the time of this node's most recent evaluation.
func (n *Node) LastEvalTime() value.EngineTime { return n.lastEvalTime }
