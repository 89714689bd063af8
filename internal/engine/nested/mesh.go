package nested

import (
	"sort"

	"tsengine/internal/engine"
	telemetry "tsengine/internal/telemetry/engine"
	"tsengine/pkg/schema"
	"tsengine/pkg/value"
)

// MeshNode extends TsdMapNode with a key-to-key dependency DAG: keys due in
// the same tick are evaluated in non-decreasing rank order,
// where rank(k) = 1 + max(rank(dep) for dep in deps(k)), and rank 0 for a
// key with no recorded dependencies.
type MeshNode struct {
	*engine.Node
	core *tsdMapCore
	deps map[any]map[any]struct{}
	rank map[any]int
}

// NewMeshNode builds a MeshNode with the same input/output contract as
// TsdMapNode.
func NewMeshNode(id string, inputMeta, outputMeta *schema.TSMeta, builder Builder) (*MeshNode, error) {
	m := &MeshNode{
		core: newTsdMapCore(builder),
		deps: make(map[any]map[any]struct{}),
		rank: make(map[any]int),
	}
	n, err := engine.NewNode(id, engine.Signature{Name: id, Kind: "nested"}, inputMeta, outputMeta, m.eval)
	if err != nil {
		return nil, err
	}
	m.Node = n
	return m, nil
}

// AddGraphDependency records that k depends on dep (dep must be evaluated
// first within any tick where both are due). Returns false and leaves no
// change recorded if the edge would close a cycle.
func (m *MeshNode) AddGraphDependency(k, dep any) bool {
	if k == dep {
		return false
	}
	if m.canReach(dep, k, 0) {
		return false
	}
	set, ok := m.deps[k]
	if !ok {
		set = make(map[any]struct{})
		m.deps[k] = set
	}
	set[dep] = struct{}{}
	m.recomputeRank(k, make(map[any]struct{}))
	telemetry.ObserveMeshRankRecompute()
	return true
}

// canReach reports whether from can reach to by following recorded
// dependency edges, bounded by depth to guard against any residual cycle
// bug turning this into an infinite walk.
func (m *MeshNode) canReach(from, to any, depth int) bool {
	if from == to {
		return true
	}
	if depth > len(m.deps)+1 {
		return false
	}
	for d := range m.deps[from] {
		if m.canReach(d, to, depth+1) {
			return true
		}
	}
	return false
}

// recomputeRank updates k's rank from its current dependency set, then
// propagates to every key whose dependency set includes k. visited is the
// current re-rank stack: a key already on the path being walked stops the
// walk, while a key reached again through a different path (a diamond) is
// re-ranked so it sees every dependency's updated rank.
func (m *MeshNode) recomputeRank(k any, visited map[any]struct{}) {
	if _, onStack := visited[k]; onStack {
		return
	}
	visited[k] = struct{}{}
	defer delete(visited, k)

	r := 0
	for dep := range m.deps[k] {
		if dr := m.rank[dep] + 1; dr > r {
			r = dr
		}
	}
	m.rank[k] = r

	for other, deps := range m.deps {
		if _, dependsOnK := deps[k]; dependsOnK {
			m.recomputeRank(other, visited)
		}
	}
}

func (m *MeshNode) rankOf(key any) int { return m.rank[key] }

// Rank reports the currently-settled rank for key (0 for a key with no
// recorded dependencies, or one not yet seen).
func (m *MeshNode) Rank(key any) int { return m.rankOf(key) }

// WorkerSlot reports the rendezvous-assigned scheduling-affinity slot for a
// currently-live key.
func (m *MeshNode) WorkerSlot(key any) (string, bool) { return m.core.workerSlot(key) }

func (m *MeshNode) eval(n *engine.Node, at value.EngineTime) error {
	input, err := n.InputRoot().Field(0)
	if err != nil {
		return err
	}
	m.core.syncKeys(input, at)

	due := m.core.dueKeys(at)
	// Rank alone only orders between distinct ranks; same-rank keys due in
	// the same tick are broken by first-seen order so the evaluation order
	// is fully deterministic, not dependent on Go's randomized map
	// iteration order.
	sort.Slice(due, func(i, j int) bool {
		ri, rj := m.rankOf(due[i]), m.rankOf(due[j])
		if ri != rj {
			return ri < rj
		}
		return m.core.keySeq(due[i]) < m.core.keySeq(due[j])
	})

	for _, key := range due {
		output, changed, err := m.core.evalKey(key, at)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}
		slot, err := n.Output().Value().DictPut(key, at)
		if err != nil {
			return err
		}
		if err := slot.SetScalar(output.Value().Scalar(), at); err != nil {
			return err
		}
	}
	return nil
}
