package engine

import (
	"time"

	tsengine "tsengine/internal/engine"
	"tsengine/pkg/value"
)

// Observer implements tsengine/internal/engine.LifecycleObserver, recording
// Prometheus metrics from the tick loop's six hook points. Compose it with a
// caller's own observer via engine.NewMultiObserver rather than replacing it
// — mirroring the way churn's counters are updated from inside
// core/worker.go's commit path without that path depending on Prometheus
// itself.
type Observer struct {
	nodeStart map[*tsengine.Node]time.Time
}

// NewObserver builds a metrics Observer. Recording is gated by the package
// Enable flag, not by anything on Observer itself, so a single process can
// hold one Observer and flip metrics on/off without rewiring graphs.
func NewObserver() *Observer {
	return &Observer{nodeStart: make(map[*tsengine.Node]time.Time)}
}

func (o *Observer) OnNodeStarted(n *tsengine.Node, at value.EngineTime) {}

func (o *Observer) OnNodeStopped(n *tsengine.Node) {
	delete(o.nodeStart, n)
}

func (o *Observer) OnBeforeEvaluation(at value.EngineTime) {
	if modEnabled.Load() {
		ticksTotal.Inc()
	}
}

func (o *Observer) OnBeforeNode(n *tsengine.Node, at value.EngineTime) {
	if modEnabled.Load() {
		o.nodeStart[n] = time.Now()
	}
}

func (o *Observer) OnAfterNode(n *tsengine.Node, at value.EngineTime, err error) {
	if !modEnabled.Load() {
		return
	}
	nodesEvaluatedTotal.Inc()
	if err != nil {
		nodeEvalFailuresTotal.Inc()
	}
	if start, ok := o.nodeStart[n]; ok {
		nodeEvalDuration.Observe(time.Since(start).Seconds())
		delete(o.nodeStart, n)
	}
}

func (o *Observer) OnAfterEvaluation(at value.EngineTime) {}
