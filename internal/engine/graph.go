package engine

import (
	"fmt"

	"tsengine/pkg/links"
	"tsengine/pkg/tserrors"
	"tsengine/pkg/value"
)

// Edge wires one node's output field (or its whole output, for FromIndex <
// 0) to a downstream node's bound input field, matching the
// binding model (peer edges only — REF edges are wired directly on the
// node's TSInputRoot via a REFLink, since they need the TargetResolver
// rather than a fixed upstream node).
type Edge struct {
	From      *Node
	FromIndex int // -1: bind the whole output; >=0: bind a child field
	To        *Node
	ToIndex   int
}

// Graph is an ordered collection of nodes plus the edges binding them,
// generalized from core/store.go's registry-of-instances shape (a flat
// name-keyed map of independently-lifecycled units) into a name-keyed node
// set with explicit wiring between members.
type Graph struct {
	Traits map[string]string // inherited key/value traits (recordable_id etc., see the record module)

	nodes    []*Node
	byID     map[string]*Node
	observer LifecycleObserver
}

// NewGraph builds an empty graph. traits, if non-nil, is copied onto the
// graph's own Traits map (a child graph augments its parent's traits with
// its own, per the nested-node module's "inherited key/value traits" rule).
func NewGraph(traits map[string]string) *Graph {
	g := &Graph{
		Traits: make(map[string]string, len(traits)),
		byID:   make(map[string]*Node),
	}
	for k, v := range traits {
		g.Traits[k] = v
	}
	return g
}

// WithObserver attaches a lifecycle observer; nil clears it.
func (g *Graph) WithObserver(obs LifecycleObserver) *Graph {
	g.observer = obs
	return g
}

// AddNode registers n in the graph. Returns tserrors.ErrBindingError if the
// ID is already taken.
func (g *Graph) AddNode(n *Node) error {
	if _, exists := g.byID[n.ID]; exists {
		return fmt.Errorf("engine: duplicate node id %q: %w", n.ID, tserrors.ErrBindingError)
	}
	g.nodes = append(g.nodes, n)
	g.byID[n.ID] = n
	return nil
}

// Node looks up a node by ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Nodes returns all nodes in registration order (the order they are started
// and evaluated in, matching the "registration order" rule for
// same-tick ties).
func (g *Graph) Nodes() []*Node { return g.nodes }

// Connect binds e.To's input field to e.From's output (or a child field of
// it), wiring e.To's node as an observer of e.From's output the moment the
// downstream node is made active. A field-scoped edge (FromIndex >= 0)
// still subscribes onto e.From's single TSOutput rather than a disposable
// per-field wrapper: NotifyModified is only ever called on that one
// TSOutput (see Node.Eval), so any other subscription target would never
// actually fire.
func (g *Graph) Connect(e Edge) error {
	if e.FromIndex < 0 {
		return e.To.InputRoot().BindField(e.ToIndex, links.NewPeerLink(e.From.Output()))
	}
	field, err := e.From.Output().Value().Child(e.FromIndex)
	if err != nil {
		return err
	}
	return e.To.InputRoot().BindField(e.ToIndex, links.NewFieldLink(e.From.Output(), field))
}

// Start brings every node in the graph up in registration order, per
// the node-lifecycle-before-first-tick rule.
func (g *Graph) Start(at value.EngineTime) error {
	for _, n := range g.nodes {
		if err := n.Initialise(); err != nil {
			return fmt.Errorf("engine: node %s initialise: %w", n.ID, err)
		}
	}
	for _, n := range g.nodes {
		if err := n.Start(at); err != nil {
			return fmt.Errorf("engine: node %s start: %w", n.ID, err)
		}
		if g.observer != nil {
			g.observer.OnNodeStarted(n, at)
		}
	}
	return nil
}

// Stop tears every node down in registration order, then disposes it.
func (g *Graph) Stop() error {
	for _, n := range g.nodes {
		if err := n.Stop(); err != nil {
			return fmt.Errorf("engine: node %s stop: %w", n.ID, err)
		}
		if g.observer != nil {
			g.observer.OnNodeStopped(n)
		}
	}
	for _, n := range g.nodes {
		if err := n.Dispose(); err != nil {
			return fmt.Errorf("engine: node %s dispose: %w", n.ID, err)
		}
	}
	return nil
}
