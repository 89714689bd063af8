package nested

import (
	"tsengine/internal/engine"
	telemetry "tsengine/internal/telemetry/engine"
	"tsengine/pkg/links"
	"tsengine/pkg/tsvalue"
	"tsengine/pkg/value"
)

// Builder constructs the sub-graph for one demultiplexed key. source wraps
// the per-key input TSValue (the TSD's value slot for that key) as a
// subscribable output, so the sub-graph can bind it like any other input.
// The returned TSOutput is read back after every sub-graph tick and written
// into the outer TSD slot for key.
type Builder func(key any, source *links.TSOutput) (*engine.Graph, *links.TSOutput)

// keyState is one live sub-graph instance: its graph, its dedicated Clock,
// the EvaluationEngine driving it, and the output port copied back to the
// outer TSD on every tick where it changed. seq is the order this key was
// first seen, used as a stable tiebreaker when sorting due keys.
type keyState struct {
	graph  *engine.Graph
	clock  *Clock
	sub    *engine.EvaluationEngine
	output *links.TSOutput
	slot   string
	seq    int
}

// tsdMapCore is the shared key-lifecycle machinery behind both TsdMapNode
// and MeshNode: a lazy get-or-create-per-key map from dict key to its own
// sub-graph.
type tsdMapCore struct {
	builder Builder
	slots   *slotPool
	keys    map[any]*keyState
	pending map[any]value.EngineTime
	nextSeq int
}

func newTsdMapCore(builder Builder) *tsdMapCore {
	return &tsdMapCore{
		builder: builder,
		slots:   newSlotPool(defaultSlotPoolSize),
		keys:    make(map[any]*keyState),
		pending: make(map[any]value.EngineTime),
	}
}

// syncKeys instantiates a sub-graph for every key newly present in input
// (a TSD) and tears down every previously-known key no longer present,
// mirroring "for each new key instantiate... for each removed key tear down".
func (c *tsdMapCore) syncKeys(input *tsvalue.TSValue, at value.EngineTime) {
	seen := make(map[any]struct{}, len(c.keys))
	input.DictKeys(func(key any, v *tsvalue.TSValue) {
		seen[key] = struct{}{}
		c.ensureKey(key, v, at)
	})
	for key := range c.keys {
		if _, ok := seen[key]; !ok {
			c.teardownKey(key)
		}
	}
	c.reportSlotMetrics()
}

// reportSlotMetrics publishes the live sub-graph count for every rendezvous
// slot currently holding at least one key, the wiring WorkerSlot/workerSlot
// exist to feed.
func (c *tsdMapCore) reportSlotMetrics() {
	counts := make(map[string]int, len(c.keys))
	for _, ks := range c.keys {
		counts[ks.slot]++
	}
	for slot, n := range counts {
		telemetry.ObserveSlotLiveKeys(slot, n)
	}
}

func (c *tsdMapCore) ensureKey(key any, demuxChild *tsvalue.TSValue, at value.EngineTime) *keyState {
	if ks, ok := c.keys[key]; ok {
		return ks
	}
	source := links.NewTSOutput(demuxChild)
	graph, output := c.builder(key, source)
	clk := NewClock(func(t value.EngineTime) { c.pending[key] = t })
	sub := engine.NewEvaluationEngine(clk, graph)
	sub.Start()
	ks := &keyState{graph: graph, clock: clk, sub: sub, output: output, slot: c.slots.assign(key), seq: c.nextSeq}
	c.nextSeq++
	c.keys[key] = ks
	// force an immediate first evaluation so a brand new key produces an
	// initial output rather than waiting for its own first schedule request
	c.pending[key] = at
	return ks
}

func (c *tsdMapCore) teardownKey(key any) {
	ks, ok := c.keys[key]
	if !ok {
		return
	}
	ks.sub.Stop()
	delete(c.keys, key)
	delete(c.pending, key)
}

// dueKeys returns every currently-known key whose pending schedule equals
// at, in map-iteration order (callers needing a specific order, e.g.
// MeshNode's rank ordering, sort this slice themselves).
func (c *tsdMapCore) dueKeys(at value.EngineTime) []any {
	var due []any
	for key, t := range c.pending {
		if t == at {
			due = append(due, key)
		}
	}
	return due
}

// evalKey consumes key's pending schedule, ticks its sub-graph at at, and
// reports whether the sub-graph's output changed this tick.
func (c *tsdMapCore) evalKey(key any, at value.EngineTime) (*links.TSOutput, bool, error) {
	ks, ok := c.keys[key]
	if !ok {
		return nil, false, nil
	}
	delete(c.pending, key)
	ks.clock.SetRequestedTime(at)
	if _, err := ks.sub.Tick(); err != nil {
		return nil, false, err
	}
	return ks.output, ks.output.Value().Modified(at), nil
}

// workerSlot reports the rendezvous-assigned slot label for a currently-live
// key, for telemetry labeling.
func (c *tsdMapCore) workerSlot(key any) (string, bool) {
	ks, ok := c.keys[key]
	if !ok {
		return "", false
	}
	return ks.slot, true
}

// keySeq returns the order key was first seen by ensureKey (-1 if key is
// not currently live). Used as a deterministic tiebreaker when sorting due
// keys that compare equal on every other axis.
func (c *tsdMapCore) keySeq(key any) int {
	if ks, ok := c.keys[key]; ok {
		return ks.seq
	}
	return -1
}
