package nested

import (
	"tsengine/internal/engine"
	"tsengine/pkg/schema"
	"tsengine/pkg/value"
)

// TsdMapNode is a compute node whose single input field is a TSD[K,V] demux
// source and whose output is a TSD[K,V'] built one sub-graph per live key.
// Evaluation copies each due sub-graph's scalar output leaf into the
// corresponding outer TSD slot; this Go port supports TS/SIGNAL
// leaf sub-graph outputs only (the common case for per-key scalar
// aggregation) — a Bundle- or collection-valued per-key output would need a
// generic TSValue graft rather than a scalar copy, which this node does not
// attempt.
type TsdMapNode struct {
	*engine.Node
	core *tsdMapCore
}

// NewTsdMapNode builds a TsdMapNode. inputMeta must be a TSB whose field 0
// is the TSD demux source (TSInputRoot's requirement); outputMeta must be a
// TSD whose element kind is TS or SIGNAL.
func NewTsdMapNode(id string, inputMeta, outputMeta *schema.TSMeta, builder Builder) (*TsdMapNode, error) {
	m := &TsdMapNode{core: newTsdMapCore(builder)}
	n, err := engine.NewNode(id, engine.Signature{Name: id, Kind: "nested"}, inputMeta, outputMeta, m.eval)
	if err != nil {
		return nil, err
	}
	m.Node = n
	return m, nil
}

// WorkerSlot reports the rendezvous-assigned scheduling-affinity slot for a
// currently-live key (internal/telemetry/engine labels metrics by slot).
func (m *TsdMapNode) WorkerSlot(key any) (string, bool) { return m.core.workerSlot(key) }

func (m *TsdMapNode) eval(n *engine.Node, at value.EngineTime) error {
	input, err := n.InputRoot().Field(0)
	if err != nil {
		return err
	}
	m.core.syncKeys(input, at)

	for _, key := range m.core.dueKeys(at) {
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
